package orch

import (
	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/protocol"
)

// broadcastUsers sends the full snapshot to every live connection.
// Callers hold o.mu.
func (o *Orchestrator) broadcastUsers() {
	users := o.Registry.Snapshot()
	o.Metrics.SetUsersOnline(len(users))
	o.Metrics.Broadcast()
	o.Gateway.Broadcast(protocol.UsersList{Users: users})
}

func (o *Orchestrator) sendUsers(sid core.SessionID) {
	o.Gateway.Send(sid, protocol.UsersList{Users: o.Registry.Snapshot()})
}
