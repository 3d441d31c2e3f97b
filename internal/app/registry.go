package app

import (
	"slices"
	"sync"

	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/rs/zerolog/log"
)

// Registry maps live connections to user records.
// Iteration follows registration order; lookups by phone number are a
// linear scan, which bounds the relay to a modest number of users.
type Registry struct {
	mu    sync.RWMutex
	users map[core.SessionID]*domain.User
	order []core.SessionID
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[core.SessionID]*domain.User),
	}
}

// Register creates or replaces the record for sid with status available.
// A replaced record keeps its position in the iteration order.
func (r *Registry) Register(sid core.SessionID, phone, name string) (domain.User, error) {
	u, err := domain.NewUser(sid.UserID(), phone, name)
	if err != nil {
		return domain.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[sid]; !ok {
		r.order = append(r.order, sid)
	}
	r.users[sid] = u
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("phone", phone).Str("username", name).Msg("registered user")
	return *u, nil
}

func (r *Registry) ByConnection(sid core.SessionID) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if u, ok := r.users[sid]; ok {
		return *u, true
	}
	return domain.User{}, false
}

// ByPhone returns the first registered user with the given phone number.
func (r *Registry) ByPhone(phone string) (domain.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sid := range r.order {
		if u := r.users[sid]; u.PhoneNumber == phone {
			return *u, true
		}
	}
	return domain.User{}, false
}

func (r *Registry) Remove(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[sid]; !ok {
		return
	}
	delete(r.users, sid)
	if i := slices.Index(r.order, sid); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("removed user")
}

// SetStatus is a no-op when sid is not registered.
func (r *Registry) SetStatus(sid core.SessionID, status domain.UserStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[sid]; ok {
		u.Status = status
		log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Str("status", string(status)).Msg("status changed")
	}
}

// Snapshot returns a copy of every record in registration order.
func (r *Registry) Snapshot() []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, 0, len(r.order))
	for _, sid := range r.order {
		out = append(out, *r.users[sid])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
