// Package testutil provides test helpers for nodegate packages.
//
// # Module fakes
//
// NewModuleServer starts an httptest server standing in for a backend module.
// JSONHandler, TextHandler and HangingHandler cover the usual module
// behaviours (valid JSON, non-JSON, never answering). ModuleRecorder captures
// what a module received so tests can check payload placement and headers.
//
//	rec := testutil.NewModuleRecorder(nil)
//	srv := testutil.NewModuleServer(t, rec)
//	reg := registry.MustNew(registry.Binding{Name: "echo", BaseURL: srv.URL})
//
// CountingTransport counts outbound round trips, which lets a test prove that
// no network call happened. ClosedURL returns an address that refuses
// connections.
//
// # Publisher mock
//
// MockPublisher is an in-memory replacement for the NATS client's Publish
// method used by the events package:
//
//	pub := testutil.NewMockPublisher()
//	notifier := events.NewNotifier(pub, "nodegate")
//	testutil.WaitForMessageCount(t, pub, "nodegate.health", 1, time.Second)
package testutil
