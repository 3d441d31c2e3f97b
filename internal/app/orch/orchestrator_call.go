package orch

import (
	"fmt"

	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/dkeye/VoiceCall/internal/protocol"
	"github.com/rs/zerolog/log"
)

const (
	MsgUserNotFound   = "User not found"
	MsgUserBusy       = "User is busy"
	MsgCallerNotFound = "Caller not found"
	MsgNotRegistered  = "User not registered"
	MsgAlreadyInCall  = "You are already in a call"
	MsgSelfCall       = "Cannot call yourself"
	MsgTooManyCalls   = "Too many call attempts"
	MsgCallEnded      = "Call ended by other party"
)

func (o *Orchestrator) register(sid core.SessionID, m *protocol.Register) {
	u, err := o.Registry.Register(sid, m.PhoneNumber, m.UserName)
	if err != nil {
		o.fail(sid, err.Error())
		return
	}
	o.Gateway.Send(sid, protocol.Registered{Success: true, UserID: u.ID})
	o.broadcastUsers()
}

func (o *Orchestrator) callRequest(sid core.SessionID, m *protocol.CallRequest) {
	caller, ok := o.Registry.ByConnection(sid)
	if !ok {
		o.fail(sid, MsgNotRegistered)
		return
	}
	if !o.Limiter.Allow(sid) {
		o.fail(sid, MsgTooManyCalls)
		return
	}
	if !caller.Available() {
		o.fail(sid, MsgAlreadyInCall)
		return
	}
	target, ok := o.Registry.ByPhone(m.TargetPhoneNumber)
	if !ok {
		o.fail(sid, MsgUserNotFound)
		return
	}
	if target.ID == caller.ID {
		o.fail(sid, MsgSelfCall)
		return
	}
	if !target.Available() {
		o.fail(sid, MsgUserBusy)
		return
	}

	tsid := core.SessionOf(target.ID)
	o.Registry.SetStatus(sid, domain.StatusCalling)
	o.Registry.SetStatus(tsid, domain.StatusRinging)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("target", string(tsid)).Msg("call initiated")

	o.Gateway.Send(tsid, protocol.IncomingCall{
		From:            caller.UserName,
		FromPhoneNumber: caller.PhoneNumber,
		FromID:          caller.ID,
		Offer:           m.Offer,
	})
	o.Gateway.Send(sid, protocol.CallInitiated{
		TargetName: target.UserName,
		TargetID:   target.ID,
	})
	o.broadcastUsers()
}

func (o *Orchestrator) answerCall(sid core.SessionID, m *protocol.AnswerCall) {
	answerer, ok := o.Registry.ByConnection(sid)
	if !ok {
		o.fail(sid, MsgNotRegistered)
		return
	}
	csid := core.SessionOf(m.CallerID)
	caller, ok := o.Registry.ByConnection(csid)
	if !ok {
		o.fail(sid, MsgCallerNotFound)
		return
	}

	o.Registry.SetStatus(sid, domain.StatusInCall)
	o.Registry.SetStatus(csid, domain.StatusInCall)
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("caller", string(csid)).Msg("call answered")

	o.Gateway.Send(csid, protocol.CallAnswered{
		Answer:       m.Answer,
		AnswererName: answerer.UserName,
	})
	o.Gateway.Send(sid, protocol.CallConnected{CallerName: caller.UserName})
	o.broadcastUsers()
}

// relayCandidate is best effort: an unknown target drops the candidate silently.
func (o *Orchestrator) relayCandidate(sid core.SessionID, m *protocol.ICECandidate) {
	tsid := core.SessionOf(m.TargetID)
	if _, ok := o.Registry.ByConnection(tsid); !ok {
		log.Debug().Str("module", "orch").Str("sid", string(sid)).Str("target", string(tsid)).Msg("candidate: no target")
		return
	}
	o.Gateway.Send(tsid, protocol.RelayedCandidate{
		Candidate: m.Candidate,
		From:      sid.UserID(),
	})
}

func (o *Orchestrator) rejectCall(sid core.SessionID, m *protocol.RejectCall) {
	name := "User"
	if rejecter, ok := o.Registry.ByConnection(sid); ok {
		name = rejecter.UserName
	}
	o.Registry.SetStatus(sid, domain.StatusAvailable)

	csid := core.SessionOf(m.CallerID)
	if _, ok := o.Registry.ByConnection(csid); ok {
		o.Registry.SetStatus(csid, domain.StatusAvailable)
		o.Gateway.Send(csid, protocol.CallRejected{
			Message: fmt.Sprintf("%s rejected your call", name),
		})
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("caller", string(csid)).Msg("call rejected")
	o.broadcastUsers()
}

func (o *Orchestrator) endCall(sid core.SessionID, m *protocol.EndCall) {
	o.Registry.SetStatus(sid, domain.StatusAvailable)

	tsid := core.SessionOf(m.TargetID)
	if _, ok := o.Registry.ByConnection(tsid); ok {
		o.Registry.SetStatus(tsid, domain.StatusAvailable)
		o.Gateway.Send(tsid, protocol.CallEnded{Message: MsgCallEnded})
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("target", string(tsid)).Msg("call ended")
	o.broadcastUsers()
}
