// Package protocol defines the signaling wire format: one JSON object per
// frame, discriminated by its "type" field.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/VoiceCall/internal/domain"
)

type Type string

const (
	TypeRegister     Type = "register"
	TypeCallRequest  Type = "call-request"
	TypeAnswerCall   Type = "answer-call"
	TypeICECandidate Type = "ice-candidate"
	TypeRejectCall   Type = "reject-call"
	TypeEndCall      Type = "end-call"
	TypeGetUsers     Type = "get-users"
	TypePing         Type = "ping"
)

var (
	ErrBadJSON      = errors.New("bad json")
	ErrUnknownType  = errors.New("unknown message type")
	ErrMissingField = errors.New("missing field")
)

// Inbound is a client-sent event. Offer, answer and candidate payloads are
// opaque: only their presence is checked, and the bytes are relayed as sent.
type Inbound interface {
	InboundType() Type
}

type Register struct {
	PhoneNumber string `json:"phoneNumber"`
	UserName    string `json:"userName"`
}

type CallRequest struct {
	TargetPhoneNumber string          `json:"targetPhoneNumber"`
	Offer             json.RawMessage `json:"offer"`
}

type AnswerCall struct {
	CallerID domain.UserID   `json:"callerId"`
	Answer   json.RawMessage `json:"answer"`
}

type ICECandidate struct {
	TargetID  domain.UserID   `json:"targetId"`
	Candidate json.RawMessage `json:"candidate"`
}

type RejectCall struct {
	CallerID domain.UserID `json:"callerId"`
}

type EndCall struct {
	TargetID domain.UserID `json:"targetId"`
}

type GetUsers struct{}

type Ping struct{}

func (Register) InboundType() Type     { return TypeRegister }
func (CallRequest) InboundType() Type  { return TypeCallRequest }
func (AnswerCall) InboundType() Type   { return TypeAnswerCall }
func (ICECandidate) InboundType() Type { return TypeICECandidate }
func (RejectCall) InboundType() Type   { return TypeRejectCall }
func (EndCall) InboundType() Type      { return TypeEndCall }
func (GetUsers) InboundType() Type     { return TypeGetUsers }
func (Ping) InboundType() Type         { return TypePing }

type validator interface {
	validate() error
}

// Decode parses one frame into its typed event and checks required fields.
func Decode(data []byte) (Inbound, error) {
	var env struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}

	var msg Inbound
	switch env.Type {
	case TypeRegister:
		msg = &Register{}
	case TypeCallRequest:
		msg = &CallRequest{}
	case TypeAnswerCall:
		msg = &AnswerCall{}
	case TypeICECandidate:
		msg = &ICECandidate{}
	case TypeRejectCall:
		msg = &RejectCall{}
	case TypeEndCall:
		msg = &EndCall{}
	case TypeGetUsers:
		return &GetUsers{}, nil
	case TypePing:
		return &Ping{}, nil
	case "":
		return nil, fmt.Errorf("%w: type", ErrMissingField)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if v, ok := msg.(validator); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func (m *Register) validate() error {
	if m.PhoneNumber == "" {
		return fmt.Errorf("%w: phoneNumber", ErrMissingField)
	}
	if m.UserName == "" {
		return fmt.Errorf("%w: userName", ErrMissingField)
	}
	return nil
}

func (m *CallRequest) validate() error {
	if m.TargetPhoneNumber == "" {
		return fmt.Errorf("%w: targetPhoneNumber", ErrMissingField)
	}
	return present("offer", m.Offer)
}

func (m *AnswerCall) validate() error {
	if m.CallerID == "" {
		return fmt.Errorf("%w: callerId", ErrMissingField)
	}
	return present("answer", m.Answer)
}

func (m *ICECandidate) validate() error {
	if m.TargetID == "" {
		return fmt.Errorf("%w: targetId", ErrMissingField)
	}
	return present("candidate", m.Candidate)
}

func (m *RejectCall) validate() error {
	if m.CallerID == "" {
		return fmt.Errorf("%w: callerId", ErrMissingField)
	}
	return nil
}

func (m *EndCall) validate() error {
	if m.TargetID == "" {
		return fmt.Errorf("%w: targetId", ErrMissingField)
	}
	return nil
}

func present(field string, raw json.RawMessage) error {
	if absent(raw) {
		return fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	return nil
}

func absent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
