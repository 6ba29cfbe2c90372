package natsclient

import (
	"fmt"

	"github.com/c360/nodegate/health"
)

// ComponentName is the name the connection is reported under in /health.
const ComponentName = "nats"

// HealthStatus converts a connection status for the health monitor. Events
// are auxiliary, so a lost connection degrades the gateway instead of
// failing it.
func HealthStatus(s ConnectionStatus) health.Status {
	switch s {
	case StatusConnected:
		return health.NewHealthy(ComponentName, "Connected")
	case StatusConnecting, StatusReconnecting:
		return health.NewDegraded(ComponentName, fmt.Sprintf("Connection %s", s))
	default:
		return health.NewDegraded(ComponentName, fmt.Sprintf("Events not delivered: connection %s", s))
	}
}
