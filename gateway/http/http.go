// Package http serves the gateway over HTTP.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/nodegate/dispatch"
	"github.com/c360/nodegate/errors"
	"github.com/c360/nodegate/events"
	"github.com/c360/nodegate/gateway"
	"github.com/c360/nodegate/health"
)

// StatusMessage is reported by / and /ping while the gateway is serving.
const StatusMessage = "nodegate active"

// forwardMethods are the methods accepted on the forward route.
var forwardMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// Gateway is the HTTP listener in front of a gateway.Backend
type Gateway struct {
	config     gateway.Config
	backend    gateway.Backend
	logger     *slog.Logger
	monitor    *health.Monitor
	notifier   *events.Notifier
	recorder   RouteRecorder
	keys       KeyValidator
	limiter    *rate.Limiter
	systemName string

	startTime time.Time

	// Metrics (atomic operations)
	requestsTotal   atomic.Uint64
	requestsSuccess atomic.Uint64
	requestsFailed  atomic.Uint64
	bytesReceived   atomic.Uint64
}

// Option configures a Gateway
type Option func(*Gateway)

// WithLogger sets the logger used for access logs and failures
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMonitor adds auxiliary component statuses (NATS) to /health
func WithMonitor(monitor *health.Monitor) Option {
	return func(g *Gateway) {
		g.monitor = monitor
	}
}

// WithNotifier publishes forward and health events
func WithNotifier(notifier *events.Notifier) Option {
	return func(g *Gateway) {
		g.notifier = notifier
	}
}

// WithRecorder records per-route request metrics
func WithRecorder(recorder RouteRecorder) Option {
	return func(g *Gateway) {
		g.recorder = recorder
	}
}

// WithAPIKeys requires a valid key on every route except /health
func WithAPIKeys(keys KeyValidator) Option {
	return func(g *Gateway) {
		g.keys = keys
	}
}

// WithRateLimiter sheds requests above the limiter's rate
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(g *Gateway) {
		g.limiter = limiter
	}
}

// WithSystemName names the aggregate reported by /health (default "nodegate")
func WithSystemName(name string) Option {
	return func(g *Gateway) {
		if name != "" {
			g.systemName = name
		}
	}
}

// NewGateway creates the HTTP listener for backend
func NewGateway(backend gateway.Backend, config gateway.Config, opts ...Option) (*Gateway, error) {
	if backend == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Gateway", "NewGateway",
			"backend is required")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Gateway", "NewGateway", "config validation")
	}

	g := &Gateway{
		config:     config,
		backend:    backend,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		systemName: "nodegate",
		startTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Handler returns the complete listener: routes under the configured prefix
// wrapped in the middleware chain.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	g.RegisterHTTPHandlers(g.config.Prefix, mux)

	return Chain(mux,
		RequestID(),
		Recover(g.logger),
		AccessLog(g.logger),
		CORS(g.config.CORSOrigins),
	)
}

// RegisterHTTPHandlers registers the gateway routes under prefix
func (g *Gateway) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	prefix = strings.TrimSuffix(prefix, "/")

	mux.Handle("GET "+prefix+"/{$}", g.route("root", g.handleRoot, true))
	mux.Handle("GET "+prefix+"/ping", g.route("ping", g.handlePing, true))
	mux.Handle("GET "+prefix+"/health", g.route("health", g.handleHealth, false))

	forward := g.route("forward", g.handleForward, true)
	for _, method := range forwardMethods {
		mux.Handle(method+" "+prefix+"/forward/{module}/{endpoint...}", forward)
	}
}

// route wraps a handler with metrics. Protected routes also pass the rate
// limiter and, when keys are configured, the API key check; /health stays
// answerable under load.
func (g *Gateway) route(name string, h http.HandlerFunc, protected bool) http.Handler {
	if !protected {
		return Chain(h, Instrument(g.recorder, name))
	}
	var auth Middleware
	if g.keys != nil {
		auth = APIKey(g.keys, g.config.APIKeyHeader)
	}
	return Chain(h, Instrument(g.recorder, name), RateLimit(g.limiter), auth)
}

func (g *Gateway) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  StatusMessage,
		"modules": g.backend.Modules(),
	})
}

// handlePing reports reachability flattened next to the module list:
// {"<module>": bool, ..., "modules": [...], "status": "..."}.
func (g *Gateway) handlePing(w http.ResponseWriter, r *http.Request) {
	results := g.backend.CheckHealthDetailed(r.Context())
	g.notifier.HealthChecked(context.WithoutCancel(r.Context()), results)

	body := make(map[string]any, len(results)+2)
	for _, mh := range results {
		body[mh.Module] = mh.Reachable
	}
	body["modules"] = g.backend.Modules()
	body["status"] = StatusMessage

	writeJSON(w, http.StatusOK, body)
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	results := g.backend.CheckHealthDetailed(r.Context())
	g.notifier.HealthChecked(context.WithoutCancel(r.Context()), results)

	modules := health.FromModules("modules", results)
	var status health.Status
	if g.monitor != nil {
		status = g.monitor.AggregateHealth(g.systemName, modules)
	} else {
		status = health.Aggregate(g.systemName, []health.Status{modules})
	}

	writeJSON(w, status.HTTPStatus(), status)
}

func (g *Gateway) handleForward(w http.ResponseWriter, r *http.Request) {
	g.requestsTotal.Add(1)

	payload, err := g.readPayload(r)
	if err != nil {
		g.requestsFailed.Add(1)
		writeError(w, err.status, err.message, nil)
		return
	}

	endpoint := (&url.URL{Path: "/" + r.PathValue("endpoint")}).EscapedPath()
	if r.Method != http.MethodGet && r.URL.RawQuery != "" {
		endpoint += "?" + r.URL.RawQuery
	}

	requestID := RequestIDFromContext(r.Context())
	headers := forwardHeaders(r.Header, g.dropHeaders()...)
	if requestID != "" {
		headers[RequestIDHeader] = requestID
	}

	req := dispatch.Request{
		Module:   r.PathValue("module"),
		Endpoint: endpoint,
		Payload:  payload,
		Method:   r.Method,
		Headers:  headers,
	}

	start := time.Now()
	result := g.backend.Forward(r.Context(), req)
	duration := time.Since(start)

	if result.OK() {
		g.requestsSuccess.Add(1)
	} else {
		g.requestsFailed.Add(1)
	}

	g.notifier.Forwarded(context.WithoutCancel(r.Context()), events.ForwardInfo{
		RequestID: requestID,
		Request:   req,
		Result:    result,
		Duration:  duration,
	})

	writeJSON(w, result.StatusCode(), g.wire(result))
}

// dropHeaders lists client headers that must not reach modules.
func (g *Gateway) dropHeaders() []string {
	drop := []string{g.config.APIKeyHeader, RequestIDHeader}
	if g.keys != nil {
		drop = append(drop, "Authorization")
	}
	return drop
}

// wire renders a result, listing the registered modules when the requested
// one is unknown.
func (g *Gateway) wire(result dispatch.Result) any {
	if result.Err == nil || result.Err.Kind != dispatch.KindModuleNotFound || result.Err.Details != nil {
		return result.Wire()
	}
	body := result.Err.Wire()
	body["details"] = map[string]any{"available_modules": g.backend.Modules()}
	return body
}

type payloadError struct {
	status  int
	message string
}

// readPayload extracts the forward payload: the query string for GET, a JSON
// body for methods that carry one, nothing otherwise.
func (g *Gateway) readPayload(r *http.Request) (any, *payloadError) {
	switch r.Method {
	case http.MethodGet:
		if query := r.URL.Query(); len(query) > 0 {
			return query, nil
		}
		return nil, nil
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil, nil
	}

	defer r.Body.Close()

	// Read with size limit + 1 to detect oversize bodies
	body, err := io.ReadAll(io.LimitReader(r.Body, g.config.MaxRequestSize+1))
	if err != nil {
		return nil, &payloadError{http.StatusBadRequest, "failed to read request body"}
	}
	if int64(len(body)) > g.config.MaxRequestSize {
		return nil, &payloadError{http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body exceeds maximum size of %d bytes", g.config.MaxRequestSize)}
	}
	g.bytesReceived.Add(uint64(len(body)))

	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, &payloadError{http.StatusBadRequest, "request body is not valid JSON"}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &payloadError{http.StatusBadRequest, "request body is not valid JSON"}
	}
	return payload, nil
}

// Stats is a snapshot of forward counters
type Stats struct {
	RequestsTotal   uint64
	RequestsSuccess uint64
	RequestsFailed  uint64
	BytesReceived   uint64
	Uptime          time.Duration
}

// Stats returns the forward counters since the gateway was created
func (g *Gateway) Stats() Stats {
	return Stats{
		RequestsTotal:   g.requestsTotal.Load(),
		RequestsSuccess: g.requestsSuccess.Load(),
		RequestsFailed:  g.requestsFailed.Load(),
		BytesReceived:   g.bytesReceived.Load(),
		Uptime:          time.Since(g.startTime),
	}
}

// writeJSON writes v with status. Encoding errors can only be logged by the
// caller's access log since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the gateway's uniform error body
func writeError(w http.ResponseWriter, status int, message string, details any) {
	body := map[string]any{
		"success":     false,
		"error":       message,
		"status_code": status,
	}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, body)
}
