// Package health provides health reporting for the gateway and its modules.
//
// # Health States
//
// Three states are used throughout:
//   - healthy: operating normally
//   - degraded: serving, with reduced capacity
//   - unhealthy: not serving
//
// Status.HTTPStatus maps them to the code served on /health: 503 for
// unhealthy, 200 otherwise.
//
// # Module health
//
// Module health is derived from a fresh dispatch sweep on every request and is
// never cached. FromModuleHealth converts one check; FromModules aggregates a
// sweep with a rule suited to redundant backends:
//
//	results := dispatcher.CheckHealthDetailed(ctx)
//	modules := health.FromModules("modules", results)
//	// all reachable → healthy, some → degraded, none → unhealthy
//
// Transport error text is sanitized before it reaches a Status message. URLs,
// paths, IP addresses, ports and credential-looking pairs are replaced with
// placeholders such as [URL] and [REDACTED].
//
// # Auxiliary components
//
// Monitor holds the last known state of components that are not checked per
// request, such as the NATS connection:
//
//	monitor := health.NewMonitor()
//	monitor.UpdateDegraded("nats", "Reconnecting")
//
//	overall := monitor.AggregateHealth("nodegate", modules)
//	w.WriteHeader(overall.HTTPStatus())
//
// AggregateHealth uses Aggregate: any unhealthy sub-status makes the whole
// unhealthy, otherwise any degraded one makes it degraded. Report optional
// components as degraded when they fail if they should not take the gateway
// out of rotation.
//
// Monitor is safe for concurrent use. Status values are copied on the way in
// and out; WithSubStatus and WithMetrics return modified copies.
package health
