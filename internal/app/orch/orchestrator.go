package orch

import (
	"sync"

	"github.com/dkeye/VoiceCall/internal/app"
	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/dkeye/VoiceCall/internal/metrics"
	"github.com/dkeye/VoiceCall/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the call session coordinator. It owns the registry and
// processes one event at a time: each handler reads, mutates and emits
// while holding mu, so no status check can race a status write.
type Orchestrator struct {
	Registry *app.Registry
	Gateway  core.Gateway
	Limiter  *app.CallRateLimiter
	Metrics  *metrics.Metrics

	mu sync.Mutex
}

// HandleMessage decodes one raw frame from sid and dispatches it.
// Malformed frames are answered with an advisory call-error.
func (o *Orchestrator) HandleMessage(sid core.SessionID, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("bad message")
		o.Metrics.Event("invalid")
		o.Metrics.CallError("invalid_message")
		o.Gateway.Send(sid, protocol.CallError{Message: "Invalid message: " + err.Error()})
		return
	}
	o.Handle(sid, msg)
}

// Handle processes a decoded event. Events are the pointer types Decode returns.
func (o *Orchestrator) Handle(sid core.SessionID, msg protocol.Inbound) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.Metrics.Event(string(msg.InboundType()))
	switch m := msg.(type) {
	case *protocol.Register:
		o.register(sid, m)
	case *protocol.CallRequest:
		o.callRequest(sid, m)
	case *protocol.AnswerCall:
		o.answerCall(sid, m)
	case *protocol.ICECandidate:
		o.relayCandidate(sid, m)
	case *protocol.RejectCall:
		o.rejectCall(sid, m)
	case *protocol.EndCall:
		o.endCall(sid, m)
	case *protocol.GetUsers:
		o.sendUsers(sid)
	case *protocol.Ping:
		o.Gateway.Send(sid, protocol.Pong{})
	default:
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Str("type", string(msg.InboundType())).Msg("unhandled message")
	}
}

// OnDisconnect removes the user bound to sid and refreshes presence.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.Metrics.Event("disconnect")
	if u, ok := o.Registry.ByConnection(sid); ok {
		log.Info().Str("module", "orch").Str("sid", string(sid)).Str("username", u.UserName).Str("status", string(u.Status)).Msg("user disconnected")
	}
	o.Registry.Remove(sid)
	o.Limiter.Forget(sid)
	o.broadcastUsers()
}

// Snapshot is the read-only view for the HTTP surface. It never observes a
// half-applied transition.
func (o *Orchestrator) Snapshot() []domain.User {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Registry.Snapshot()
}

// Online reports the number of registered users.
func (o *Orchestrator) Online() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Registry.Len()
}

func (o *Orchestrator) fail(sid core.SessionID, message string) {
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("reason", message).Msg("call error")
	o.Metrics.CallError(message)
	o.Gateway.Send(sid, protocol.CallError{Message: message})
}
