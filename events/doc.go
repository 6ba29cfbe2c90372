// Package events publishes gateway activity to a message bus.
//
// After every forward the listener calls Notifier.Forwarded, and after every
// health sweep Notifier.HealthChecked. Events are JSON with a uuid id and an
// RFC3339 timestamp:
//
//	<prefix>.forward.<module>   ForwardEvent
//	<prefix>.health             HealthEvent
//
// Request payloads and response bodies are never published. Publishing is
// best effort: failures are logged and counted, never returned to clients.
//
//	client, _ := natsclient.NewClient(cfg.NATS.URL)
//	notifier := events.NewNotifier(client, cfg.NATS.SubjectPrefix, events.WithLogger(logger))
//	_ = notifier.RegisterMetrics(metricsRegistry)
package events
