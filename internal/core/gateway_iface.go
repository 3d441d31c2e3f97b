package core

import "github.com/dkeye/VoiceCall/internal/protocol"

// Gateway delivers outbound messages chosen by the coordinator.
// Delivery is fire-and-forget; unknown or closed targets are ignored.
type Gateway interface {
	Send(to SessionID, msg protocol.Outbound)
	// Broadcast reaches every live connection, registered or not.
	Broadcast(msg protocol.Outbound)
}
