package protocol

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/VoiceCall/internal/domain"
)

const (
	TypeRegistered    Type = "registered"
	TypeUsersList     Type = "users-list"
	TypeIncomingCall  Type = "incoming-call"
	TypeCallInitiated Type = "call-initiated"
	TypeCallAnswered  Type = "call-answered"
	TypeCallConnected Type = "call-connected"
	TypeCallRejected  Type = "call-rejected"
	TypeCallEnded     Type = "call-ended"
	TypeCallError     Type = "call-error"
	TypePong          Type = "pong"
)

var ErrNotObject = errors.New("outbound payload is not a json object")

// Outbound is a server-sent event.
type Outbound interface {
	OutboundType() Type
}

type Registered struct {
	Success bool          `json:"success"`
	UserID  domain.UserID `json:"userId"`
}

type UsersList struct {
	Users []domain.User `json:"users"`
}

type IncomingCall struct {
	From            string          `json:"from"`
	FromPhoneNumber string          `json:"fromPhoneNumber"`
	FromID          domain.UserID   `json:"fromId"`
	Offer           json.RawMessage `json:"offer"`
}

type CallInitiated struct {
	TargetName string        `json:"targetName"`
	TargetID   domain.UserID `json:"targetId"`
}

type CallAnswered struct {
	Answer       json.RawMessage `json:"answer"`
	AnswererName string          `json:"answererName"`
}

type CallConnected struct {
	CallerName string `json:"callerName"`
}

// RelayedCandidate is the "ice-candidate" event as delivered to the peer.
type RelayedCandidate struct {
	Candidate json.RawMessage `json:"candidate"`
	From      domain.UserID   `json:"from"`
}

type CallRejected struct {
	Message string `json:"message"`
}

type CallEnded struct {
	Message string `json:"message"`
}

type CallError struct {
	Message string `json:"message"`
}

type Pong struct{}

func (Registered) OutboundType() Type       { return TypeRegistered }
func (UsersList) OutboundType() Type        { return TypeUsersList }
func (IncomingCall) OutboundType() Type     { return TypeIncomingCall }
func (CallInitiated) OutboundType() Type    { return TypeCallInitiated }
func (CallAnswered) OutboundType() Type     { return TypeCallAnswered }
func (CallConnected) OutboundType() Type    { return TypeCallConnected }
func (RelayedCandidate) OutboundType() Type { return TypeICECandidate }
func (CallRejected) OutboundType() Type     { return TypeCallRejected }
func (CallEnded) OutboundType() Type        { return TypeCallEnded }
func (CallError) OutboundType() Type        { return TypeCallError }
func (Pong) OutboundType() Type             { return TypePong }

// Encode marshals m and puts its "type" first in the resulting object.
func Encode(m Outbound) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, ErrNotObject
	}
	typ, err := json.Marshal(m.OutboundType())
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(body)+len(typ)+9)
	out = append(out, `{"type":`...)
	out = append(out, typ...)
	if len(body) == 2 {
		return append(out, '}'), nil
	}
	out = append(out, ',')
	return append(out, body[1:]...), nil
}
