package core

import "github.com/dkeye/VoiceCall/internal/domain"

// SessionID identifies one live connection. It is assigned by the gateway
// and doubles as the user id once the connection registers.
type SessionID string

func (s SessionID) UserID() domain.UserID { return domain.UserID(s) }

func SessionOf(id domain.UserID) SessionID { return SessionID(id) }
