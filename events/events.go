package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/nodegate/dispatch"
	"github.com/c360/nodegate/metric"
)

// Publisher sends raw event payloads to a subject. *natsclient.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Event types
const (
	TypeForward = "forward"
	TypeHealth  = "health"
)

// ForwardEvent describes one completed forward. Payloads and bodies are never
// included.
type ForwardEvent struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Timestamp  string `json:"timestamp"`
	RequestID  string `json:"request_id,omitempty"`
	Module     string `json:"module"`
	Endpoint   string `json:"endpoint"`
	Method     string `json:"method"`
	StatusCode int    `json:"status_code"`
	Success    bool   `json:"success"`
	ErrorKind  string `json:"error_kind,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// HealthEvent summarizes one health sweep.
type HealthEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Modules   map[string]bool `json:"modules"`
	Reachable int             `json:"reachable"`
	Total     int             `json:"total"`
}

// ForwardInfo is what the listener knows after a forward completes.
type ForwardInfo struct {
	RequestID string
	Request   dispatch.Request
	Result    dispatch.Result
	Duration  time.Duration
}

// Notifier publishes gateway events. A nil *Notifier is valid and drops
// everything, so callers never need to check whether events are enabled.
type Notifier struct {
	publisher Publisher
	prefix    string
	logger    *slog.Logger
	published *prometheus.CounterVec
	now       func() time.Time
}

// Option configures a Notifier
type Option func(*Notifier)

// WithLogger sets the logger used for publish failures
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNotifier creates a notifier publishing under prefix (e.g. "nodegate").
func NewNotifier(publisher Publisher, prefix string, opts ...Option) *Notifier {
	n := &Notifier{
		publisher: publisher,
		prefix:    strings.TrimSuffix(prefix, "."),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// RegisterMetrics adds nodegate_events_published_total{type,result} to registrar.
func (n *Notifier) RegisterMetrics(registrar metric.MetricsRegistrar) error {
	published := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Name:      "events_published_total",
			Help:      "Gateway events handed to the message bus, by type and result",
		},
		[]string{"type", "result"},
	)
	if err := registrar.Register("events", "events_published_total", published); err != nil {
		return err
	}
	n.published = published
	return nil
}

// ForwardSubject returns the subject forward events for module are published on.
func (n *Notifier) ForwardSubject(module string) string {
	return n.prefix + ".forward." + subjectToken(module)
}

// HealthSubject returns the subject health events are published on.
func (n *Notifier) HealthSubject() string {
	return n.prefix + ".health"
}

// Forwarded publishes a ForwardEvent for a completed forward.
func (n *Notifier) Forwarded(ctx context.Context, info ForwardInfo) {
	if n == nil {
		return
	}

	method := strings.ToUpper(info.Request.Method)
	if method == "" {
		method = "POST"
	}

	event := ForwardEvent{
		ID:         uuid.NewString(),
		Type:       TypeForward,
		Timestamp:  n.now().UTC().Format(time.RFC3339),
		RequestID:  info.RequestID,
		Module:     info.Request.Module,
		Endpoint:   info.Request.Endpoint,
		Method:     method,
		StatusCode: info.Result.StatusCode(),
		Success:    info.Result.OK(),
		DurationMS: info.Duration.Milliseconds(),
	}
	if info.Result.Err != nil {
		event.ErrorKind = info.Result.Err.Kind.String()
	}

	n.publish(ctx, TypeForward, n.ForwardSubject(info.Request.Module), event)
}

// HealthChecked publishes a HealthEvent for a completed sweep.
func (n *Notifier) HealthChecked(ctx context.Context, results []dispatch.ModuleHealth) {
	if n == nil {
		return
	}

	event := HealthEvent{
		ID:        uuid.NewString(),
		Type:      TypeHealth,
		Timestamp: n.now().UTC().Format(time.RFC3339),
		Modules:   make(map[string]bool, len(results)),
		Total:     len(results),
	}
	for _, mh := range results {
		event.Modules[mh.Module] = mh.Reachable
		if mh.Reachable {
			event.Reachable++
		}
	}

	n.publish(ctx, TypeHealth, n.HealthSubject(), event)
}

func (n *Notifier) publish(ctx context.Context, eventType, subject string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Error("Failed to encode event", "type", eventType, "error", err)
		n.count(eventType, "error")
		return
	}

	if err := n.publisher.Publish(ctx, subject, data); err != nil {
		n.logger.Warn("Failed to publish event",
			"type", eventType,
			"subject", subject,
			"error", err)
		n.count(eventType, "error")
		return
	}

	n.logger.Debug("Published event", "type", eventType, "subject", subject)
	n.count(eventType, "ok")
}

func (n *Notifier) count(eventType, result string) {
	if n.published != nil {
		n.published.WithLabelValues(eventType, result).Inc()
	}
}

// subjectToken maps a module name onto a single NATS subject token.
// Wildcards, separators and whitespace become '_'.
func subjectToken(name string) string {
	if name == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, name)
}
