package dispatch

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360/nodegate/registry"
)

const (
	// DefaultHealthTimeout bounds a single module health check.
	DefaultHealthTimeout = 5 * time.Second
	// DefaultForwardTimeout bounds a single forwarded request. Module
	// workloads (translation, transcription) can be slow.
	DefaultForwardTimeout = 15 * time.Second
	// DefaultMaxResponseSize bounds how much of a module response is read.
	DefaultMaxResponseSize int64 = 10 << 20
)

// Logger is the observability sink the dispatcher writes decisions to.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Recorder receives per-call measurements. metric.Metrics implements it.
type Recorder interface {
	RecordForward(module, method string, statusCode int, duration time.Duration)
	RecordHealthCheck(module string, reachable bool, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordForward(string, string, int, time.Duration) {}
func (nopRecorder) RecordHealthCheck(string, bool, time.Duration)    {}

// Dispatcher resolves modules and relays requests to them.
// It holds no mutable state, so one Dispatcher serves concurrent callers.
type Dispatcher struct {
	registry *registry.Registry
	logger   Logger
	recorder Recorder

	forwardClient *http.Client
	healthClient  *http.Client

	healthTimeout     time.Duration
	forwardTimeout    time.Duration
	healthConcurrency int
	maxResponseSize   int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the observability sink.
func WithLogger(logger Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(d *Dispatcher) {
		if recorder != nil {
			d.recorder = recorder
		}
	}
}

// WithHTTPClient sets the client used for outbound calls. Health checks use a
// copy that does not follow redirects.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.forwardClient = client
		}
	}
}

// WithHealthTimeout overrides DefaultHealthTimeout.
func WithHealthTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.healthTimeout = timeout
		}
	}
}

// WithForwardTimeout overrides DefaultForwardTimeout.
func WithForwardTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.forwardTimeout = timeout
		}
	}
}

// WithHealthConcurrency limits how many health checks run at once.
// Zero or negative means one goroutine per module.
func WithHealthConcurrency(n int) Option {
	return func(d *Dispatcher) {
		d.healthConcurrency = n
	}
}

// WithMaxResponseSize overrides DefaultMaxResponseSize.
func WithMaxResponseSize(n int64) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxResponseSize = n
		}
	}
}

// New creates a dispatcher over reg.
func New(reg *registry.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:        reg,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder:        nopRecorder{},
		forwardClient:   &http.Client{Transport: http.DefaultTransport},
		healthTimeout:   DefaultHealthTimeout,
		forwardTimeout:  DefaultForwardTimeout,
		maxResponseSize: DefaultMaxResponseSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	// Only an exact 200 counts as reachable, so redirects are reported as-is.
	health := *d.forwardClient
	health.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	d.healthClient = &health

	return d
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *registry.Registry {
	return d.registry
}

// Modules lists registered module names in registration order.
func (d *Dispatcher) Modules() []string {
	return d.registry.Names()
}

// ForwardTimeout returns the per-request deadline applied by Forward.
func (d *Dispatcher) ForwardTimeout() time.Duration {
	return d.forwardTimeout
}
