// Package gateway defines the client-facing side of nodegate.
//
// The dispatch core never listens on a socket. This package holds the
// contract between the core and a listener (Backend) plus the listener's
// configuration; gateway/http is the HTTP implementation.
//
// # Architecture
//
//	┌─────────────────┐
//	│  HTTP Client    │  POST /api/forward/translate/v1/text
//	└────────┬────────┘
//	         ↓
//	┌────────────────────────────────────────┐
//	│  gateway/http (middleware chain)       │
//	│  request id → recover → log → CORS →   │
//	│  route: rate limit → API key → handler │
//	└────────┬───────────────────────────────┘
//	         ↓ dispatch.Request
//	┌────────────────────────────────────────┐
//	│  dispatch.Dispatcher                   │
//	│  registry lookup, URL join, relay      │
//	└────────┬───────────────────────────────┘
//	         ↓ HTTP
//	┌────────────────────────────────────────┐
//	│  module "translate"                    │
//	└────────────────────────────────────────┘
//
// # Routes
//
//	GET  {prefix}/                             status and module names
//	GET  {prefix}/ping                         reachability per module
//	GET  {prefix}/health                       aggregated health.Status
//	*    {prefix}/forward/{module}/{endpoint...}
//
// Forward accepts GET, POST, PUT, PATCH and DELETE. GET payloads come from the
// query string; other methods read a JSON body. The response status is the
// one implied by the dispatch Result.
//
// # Security
//
//   - API keys are checked in constant time and stripped before forwarding
//   - hop-by-hop headers never reach modules
//   - request bodies are size-limited
//   - CORS is off unless origins are configured
package gateway
