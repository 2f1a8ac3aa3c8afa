package guest

import (
	"os"
	"path/filepath"
	"testing"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticIDGenerator struct {
	id string
}

func (g staticIDGenerator) NewID() (string, error) {
	return g.id, nil
}

func TestStore_GuestIDIsStableAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "identity.toml")

	first, err := NewStore(path, staticIDGenerator{id: "abc"}).GuestID()
	require.NoError(t, err)
	assert.Equal(t, "guest-abc", first)

	second, err := NewStore(path, staticIDGenerator{id: "other"}).GuestID()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var state State
	require.NoError(t, toml.Unmarshal(raw, &state))
	assert.Equal(t, "guest-abc", state.GuestID)
	assert.False(t, state.CreatedAt.IsZero())
}

func TestStore_RememberAndForgetUser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.toml")
	store := NewStore(path, staticIDGenerator{id: "abc"})

	_, ok := store.LastUser("hash-1")
	assert.False(t, ok)

	require.NoError(t, store.RememberUser("user-1", "hash-1"))

	reopened := NewStore(path, staticIDGenerator{id: "abc"})
	userID, ok := reopened.LastUser("hash-1")
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)

	_, ok = reopened.LastUser("hash-2")
	assert.False(t, ok, "a different token does not inherit the account")

	require.NoError(t, reopened.Forget())
	_, ok = reopened.LastUser("hash-1")
	assert.False(t, ok)
}

func TestStore_CorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.toml")
	require.NoError(t, os.WriteFile(path, []byte("guest_id = ["), 0o600))

	_, err := NewStore(path, nil).GuestID()
	require.Error(t, err)
}
