// Package natsclient wraps nats.go for the gateway's event stream.
//
// The gateway only publishes, so the client is deliberately small: connect,
// publish, a subscribe helper for consumers and tests, and a close that drains
// pending messages first. Reconnection is left to nats.go (infinite by
// default); the client tracks the resulting status and reports it.
//
//	client, err := natsclient.NewClient(cfg.NATS.URL,
//	    natsclient.WithLogger(logger),
//	    natsclient.WithRecorder(metrics),
//	    natsclient.WithStatusCallback(func(s natsclient.ConnectionStatus) {
//	        monitor.Update("nats", natsclient.HealthStatus(s))
//	    }),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
// *Client satisfies events.Publisher. Publish returns ErrNotConnected while
// the connection is down; callers treat publishing as best effort.
//
// # Status
//
// Connection state moves through Disconnected, Connecting, Connected,
// Reconnecting and finally Closed. Each change is passed to the
// StatusRecorder (the nodegate_nats_connected gauge and the reconnect
// counter) and to the optional status callback.
package natsclient
