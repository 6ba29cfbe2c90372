package dispatch

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/c360/nodegate/registry"
	"github.com/c360/nodegate/testutil"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// hasAttr reports whether any entry at level carries key=value.
func (l *recordingLogger) hasAttr(level, key string, value any) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level != level {
			continue
		}
		for i := 0; i+1 < len(e.args); i += 2 {
			if e.args[i] == key && fmt.Sprint(e.args[i+1]) == fmt.Sprint(value) {
				return true
			}
		}
	}
	return false
}

type forwardCall struct {
	module string
	method string
	status int
}

type healthCall struct {
	module    string
	reachable bool
}

// recordingRecorder captures metric calls.
type recordingRecorder struct {
	mu       sync.Mutex
	forwards []forwardCall
	checks   []healthCall
}

func (r *recordingRecorder) RecordForward(module, method string, statusCode int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forwards = append(r.forwards, forwardCall{module: module, method: method, status: statusCode})
}

func (r *recordingRecorder) RecordHealthCheck(module string, reachable bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, healthCall{module: module, reachable: reachable})
}

func (r *recordingRecorder) forwardCalls() []forwardCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]forwardCall(nil), r.forwards...)
}

func (r *recordingRecorder) healthCalls() []healthCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]healthCall(nil), r.checks...)
}

func newDispatcher(t *testing.T, bindings []registry.Binding, opts ...Option) *Dispatcher {
	t.Helper()
	reg, err := registry.New(bindings...)
	require.NoError(t, err)
	return New(reg, opts...)
}

// moduleAt starts a module server and returns its binding under name.
func moduleAt(t *testing.T, name string, handler http.Handler) registry.Binding {
	t.Helper()
	srv := testutil.NewModuleServer(t, handler)
	return registry.Binding{Name: name, BaseURL: srv.URL}
}
