package testutil

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
)

// NewModuleServer starts an httptest server playing a backend module and
// closes it when the test ends.
func NewModuleServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

// JSONHandler answers every request with status and body encoded as JSON.
func JSONHandler(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}

// TextHandler answers every request with status and a raw text body.
func TextHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// HangingHandler blocks until the client gives up on the request.
func HangingHandler() http.HandlerFunc {
	return func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}
}

// RecordedRequest is a snapshot of a request a module received.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// ModuleRecorder records incoming requests and delegates the response.
type ModuleRecorder struct {
	mu       sync.Mutex
	requests []RecordedRequest
	next     http.Handler
}

// NewModuleRecorder wraps next; a nil next answers {"ok":true}.
func NewModuleRecorder(next http.Handler) *ModuleRecorder {
	if next == nil {
		next = JSONHandler(http.StatusOK, map[string]any{"ok": true})
	}
	return &ModuleRecorder{next: next}
}

// ServeHTTP implements http.Handler.
func (m *ModuleRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	m.mu.Unlock()

	m.next.ServeHTTP(w, r)
}

// Requests returns a copy of all recorded requests.
func (m *ModuleRecorder) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Last returns the most recent request; it fails the test when there is none.
func (m *ModuleRecorder) Last(t *testing.T) RecordedRequest {
	t.Helper()
	reqs := m.Requests()
	if len(reqs) == 0 {
		t.Fatal("module received no requests")
	}
	return reqs[len(reqs)-1]
}

// CountingTransport counts outbound round trips before delegating.
type CountingTransport struct {
	Next  http.RoundTripper
	calls atomic.Int64
}

// RoundTrip implements http.RoundTripper.
func (c *CountingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	next := c.Next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(r)
}

// Calls returns the number of round trips made.
func (c *CountingTransport) Calls() int64 {
	return c.calls.Load()
}

// ClosedURL returns an http URL on a local port nobody listens on.
func ClosedURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}
	return "http://" + addr
}
