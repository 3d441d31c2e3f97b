package signal

import (
	"errors"
	"sync"

	"github.com/dkeye/VoiceCall/internal/app"
	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/metrics"
	"github.com/dkeye/VoiceCall/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Hub is the connection gateway: it implements core.Gateway over every
// attached connection, registered or not.
type Hub struct {
	mu    sync.RWMutex
	conns map[core.SessionID]core.SignalConnection

	Policy  app.Policy
	Metrics *metrics.Metrics
}

func NewHub(policy app.Policy, m *metrics.Metrics) *Hub {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &Hub{
		conns:   make(map[core.SessionID]core.SignalConnection),
		Policy:  policy,
		Metrics: m,
	}
}

func (h *Hub) Attach(sid core.SessionID, c core.SignalConnection) {
	h.mu.Lock()
	h.conns[sid] = c
	n := len(h.conns)
	h.mu.Unlock()
	h.Metrics.SetConnections(n)
	log.Debug().Str("module", "signal.hub").Str("sid", string(sid)).Int("count", n).Msg("attached")
}

func (h *Hub) Detach(sid core.SessionID) {
	h.mu.Lock()
	delete(h.conns, sid)
	n := len(h.conns)
	h.mu.Unlock()
	h.Metrics.SetConnections(n)
	log.Debug().Str("module", "signal.hub").Str("sid", string(sid)).Int("count", n).Msg("detached")
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) Send(to core.SessionID, msg protocol.Outbound) {
	frame, ok := h.encode(msg)
	if !ok {
		return
	}
	h.mu.RLock()
	c, found := h.conns[to]
	h.mu.RUnlock()
	if !found {
		h.Metrics.Dropped(metrics.DropClosed)
		return
	}
	h.deliver(to, c, frame)
}

func (h *Hub) Broadcast(msg protocol.Outbound) {
	frame, ok := h.encode(msg)
	if !ok {
		return
	}
	type target struct {
		sid  core.SessionID
		conn core.SignalConnection
	}
	h.mu.RLock()
	targets := make([]target, 0, len(h.conns))
	for sid, c := range h.conns {
		targets = append(targets, target{sid, c})
	}
	h.mu.RUnlock()

	for _, t := range targets {
		h.deliver(t.sid, t.conn, frame)
	}
}

// CloseAll closes every attached connection; their read pumps then run the
// regular disconnect path.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]core.SignalConnection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.Close()
	}
}

func (h *Hub) encode(msg protocol.Outbound) (core.Frame, bool) {
	b, err := protocol.Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "signal.hub").Str("type", string(msg.OutboundType())).Msg("encode")
		h.Metrics.Dropped(metrics.DropEncode)
		return nil, false
	}
	return core.Frame(b), true
}

func (h *Hub) deliver(sid core.SessionID, c core.SignalConnection, frame core.Frame) {
	err := c.TrySend(frame)
	if err == nil {
		return
	}
	if !errors.Is(err, ErrBackpressure) {
		h.Metrics.Dropped(metrics.DropClosed)
		return
	}
	h.Metrics.Dropped(metrics.DropBackpressure)
	action := h.Policy.OnBackPressure(sid)
	log.Warn().Str("module", "signal.hub").Str("sid", string(sid)).Str("action", action.String()).Msg("slow consumer")
	if action == app.KickMember {
		c.Close()
	}
}
