package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every gateway metric.
const Namespace = "nodegate"

// Metrics contains the gateway-level metrics
type Metrics struct {
	// Forwarding
	ForwardRequests *prometheus.CounterVec
	ForwardDuration *prometheus.HistogramVec

	// Module health
	ModuleUp     *prometheus.GaugeVec
	HealthChecks *prometheus.CounterVec

	// Listener
	HTTPRequests *prometheus.CounterVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all gateway metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ForwardRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "forward_requests_total",
				Help:      "Total number of requests forwarded to modules, by resulting status code",
			},
			[]string{"module", "method", "code"},
		),

		ForwardDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "forward_duration_seconds",
				Help:      "Time spent forwarding a request to a module",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"module"},
		),

		ModuleUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "module_up",
				Help:      "Result of the last module health check (0=unreachable, 1=reachable)",
			},
			[]string{"module"},
		),

		HealthChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "health_checks_total",
				Help:      "Total number of module health checks",
			},
			[]string{"module", "result"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of requests served by the gateway listener",
			},
			[]string{"route", "code"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.ForwardRequests,
		c.ForwardDuration,
		c.ModuleUp,
		c.HealthChecks,
		c.HTTPRequests,
		c.NATSConnected,
		c.NATSReconnects,
	}
}

// RecordForward counts a forwarded request and observes its duration.
func (c *Metrics) RecordForward(module, method string, statusCode int, duration time.Duration) {
	c.ForwardRequests.WithLabelValues(module, method, strconv.Itoa(statusCode)).Inc()
	c.ForwardDuration.WithLabelValues(module).Observe(duration.Seconds())
}

// RecordHealthCheck updates module_up and counts the check.
func (c *Metrics) RecordHealthCheck(module string, reachable bool, _ time.Duration) {
	value, result := 0.0, "unreachable"
	if reachable {
		value, result = 1.0, "reachable"
	}
	c.ModuleUp.WithLabelValues(module).Set(value)
	c.HealthChecks.WithLabelValues(module, result).Inc()
}

// RecordHTTPRequest counts a request served by the listener
func (c *Metrics) RecordHTTPRequest(route string, statusCode int) {
	c.HTTPRequests.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}
