// Package metric provides Prometheus metrics for the nodegate gateway.
//
// # Overview
//
// MetricsRegistry owns a private prometheus.Registry (never the global default)
// with the gateway metrics and the Go runtime and process collectors already
// registered. Other components add their own collectors through the
// MetricsRegistrar interface.
//
// # Gateway metrics
//
// All names live under the "nodegate" namespace:
//
//	nodegate_forward_requests_total{module,method,code}   counter
//	nodegate_forward_duration_seconds{module}             histogram
//	nodegate_module_up{module}                            gauge, 0 or 1
//	nodegate_health_checks_total{module,result}           counter
//	nodegate_http_requests_total{route,code}              counter
//	nodegate_nats_connected                               gauge, 0 or 1
//	nodegate_nats_reconnects_total                        counter
//
// The module label only ever carries registered module names. Requests for an
// unknown module are counted under "_unknown" so clients cannot grow label
// cardinality.
//
// # Wiring
//
// *Metrics implements dispatch.Recorder:
//
//	reg := metric.NewMetricsRegistry()
//	d := dispatch.New(modules, dispatch.WithRecorder(reg.CoreMetrics()))
//
// Server exposes the registry over HTTP with promhttp:
//
//	srv := metric.NewServer(9090, "/metrics", reg)
//	if err := srv.Start(); err != nil { // port is bound on return
//	    return err
//	}
//	defer srv.Stop(ctx)
//	go func() {
//	    if err := <-srv.Done(); err != nil {
//	        logger.Error("metrics server failed", "error", err)
//	    }
//	}()
//
// # Registering component metrics
//
//	published := prometheus.NewCounterVec(prometheus.CounterOpts{
//	    Namespace: "nodegate",
//	    Subsystem: "events",
//	    Name:      "published_total",
//	    Help:      "Events published",
//	}, []string{"kind", "result"})
//	if err := reg.Register("events", "published_total", published); err != nil {
//	    return err
//	}
//
// Registering the same owner and metric name twice returns an invalid-class
// error. Unregister removes a collector again and reports whether it existed.
package metric
