package gateway

import (
	"context"
	"net/http"

	"github.com/c360/nodegate/dispatch"
)

// Backend is what the listener needs from the dispatch core.
// *dispatch.Dispatcher satisfies it.
type Backend interface {
	// Forward relays one request and always returns a Result.
	Forward(ctx context.Context, req dispatch.Request) dispatch.Result

	// CheckHealthDetailed checks every module, in registration order.
	CheckHealthDetailed(ctx context.Context) []dispatch.ModuleHealth

	// Modules lists registered module names in registration order.
	Modules() []string
}

// HTTPHandler is implemented by anything that mounts routes on a shared mux.
type HTTPHandler interface {
	RegisterHTTPHandlers(prefix string, mux *http.ServeMux)
}
