// Package dispatch resolves module names and relays requests to them.
//
// A Dispatcher sits between the HTTP listener and the backend modules held in
// a registry.Registry. It offers two operations:
//
//   - CheckHealth checks every module concurrently with a GET on its base URL.
//     Only an exact 200 counts as reachable; any other status or transport
//     failure is reported as false. One module failing never affects another.
//   - Forward relays a single request to module/endpoint. GET payloads travel
//     as query parameters; POST, PUT and PATCH payloads travel as a JSON body;
//     DELETE carries no body.
//
// Forward never returns an error value. Every outcome, including panics in the
// forwarding path, is folded into a Result whose StatusCode tells the listener
// what to answer:
//
//	404  module not registered (no network call is made)
//	4xx/5xx  module answered with an error status (passed through)
//	503  connection refused or host unreachable
//	504  deadline exceeded
//	502  response is not a single JSON value
//	500  other transport faults and internal failures
//
// Usage:
//
//	reg := registry.MustNew(registry.Binding{Name: "translate", BaseURL: "http://translate:8080/"})
//	d := dispatch.New(reg, dispatch.WithLogger(logger), dispatch.WithRecorder(metrics))
//
//	res := d.Forward(ctx, dispatch.Request{
//	    Module:   "translate",
//	    Endpoint: "/translate",
//	    Method:   http.MethodPost,
//	    Payload:  map[string]any{"text": "ciao", "target": "en"},
//	})
//	writeJSON(w, res.StatusCode(), res.Wire())
//
// URL composition strips exactly one trailing slash from the base URL and one
// leading slash from the endpoint. Repeated slashes are kept as given.
package dispatch
