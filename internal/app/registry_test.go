package app

import (
	"testing"

	"github.com/dkeye/VoiceCall/internal/core"
	"github.com/dkeye/VoiceCall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(users []domain.User) []domain.UserID {
	out := make([]domain.UserID, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	u, err := r.Register("a", "+1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, u.Status)

	got, ok := r.ByConnection("a")
	require.True(t, ok)
	assert.Equal(t, "Alice", got.UserName)

	got, ok = r.ByPhone("+1")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("a"), got.ID)

	_, ok = r.ByPhone("+9")
	assert.False(t, ok)
	_, ok = r.ByConnection("zz")
	assert.False(t, ok)
}

func TestRegistryRejectsInvalidFields(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register("a", "", "Alice")
	assert.ErrorIs(t, err, domain.ErrPhoneEmpty)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryReRegisterOverwritesInPlace(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Register("a", "+1", "Alice")
	_, _ = r.Register("b", "+2", "Bob")
	r.SetStatus("a", domain.StatusInCall)

	_, err := r.Register("a", "+3", "Alicia")
	require.NoError(t, err)

	snap := r.Snapshot()
	assert.Equal(t, []domain.UserID{"a", "b"}, ids(snap))
	assert.Equal(t, "Alicia", snap[0].UserName)
	assert.Equal(t, domain.StatusAvailable, snap[0].Status)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryByPhoneFirstMatchWins(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Register("first", "+1", "Alice")
	_, _ = r.Register("second", "+1", "Impostor")

	got, ok := r.ByPhone("+1")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("first"), got.ID)

	r.Remove("first")
	got, ok = r.ByPhone("+1")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("second"), got.ID)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	for _, sid := range []core.SessionID{"a", "b", "c"} {
		_, _ = r.Register(sid, "+"+string(sid), string(sid))
	}
	r.Remove("b")
	r.Remove("missing")
	assert.Equal(t, []domain.UserID{"a", "c"}, ids(r.Snapshot()))
	assert.Equal(t, 2, r.Len())
}

func TestRegistrySetStatusAbsentIsNoop(t *testing.T) {
	r := NewRegistry()
	r.SetStatus("ghost", domain.StatusRinging)
	assert.Equal(t, 0, r.Len())
	_, ok := r.ByConnection("ghost")
	assert.False(t, ok)
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Register("a", "+1", "Alice")

	snap := r.Snapshot()
	snap[0].Status = domain.StatusInCall

	got, _ := r.ByConnection("a")
	assert.Equal(t, domain.StatusAvailable, got.Status)

	got.UserName = "mutated"
	again, _ := r.ByConnection("a")
	assert.Equal(t, "Alice", again.UserName)
}

func TestRegistryEmptySnapshotIsNotNil(t *testing.T) {
	assert.NotNil(t, NewRegistry().Snapshot())
}
