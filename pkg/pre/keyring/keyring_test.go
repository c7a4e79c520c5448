package keyring

import (
	"testing"

	osring "github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manishvishnoi2/nucypher/pkg/pre/identity"
)

func registries(t *testing.T) map[string]Registry {
	t.Helper()
	file, err := Open(Config{
		ServiceName: "nucypher-test",
		Backend:     string(osring.FileBackend),
		FileDir:     t.TempDir(),
		Password:    "test-password",
	})
	require.NoError(t, err)
	return map[string]Registry{
		"memory": NewMemory(),
		"array":  New(osring.NewArrayKeyring(nil)),
		"file":   file,
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	for name, r := range registries(t) {
		t.Run(name, func(t *testing.T) {
			id, err := identity.Generate()
			require.NoError(t, err)
			require.NoError(t, r.Store("alice", id))

			loaded, err := r.Load("alice")
			require.NoError(t, err)
			assert.Equal(t, id.NodeID(), loaded.NodeID())
			assert.True(t, id.Card().EncryptingKey.Equal(loaded.Card().EncryptingKey))

			names, err := r.Names()
			require.NoError(t, err)
			assert.Equal(t, []string{"alice"}, names)

			_, err = r.Load("bob")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLoadOrGenerate(t *testing.T) {
	r := NewMemory()
	first, err := LoadOrGenerate(r, "node-1")
	require.NoError(t, err)
	second, err := LoadOrGenerate(r, "node-1")
	require.NoError(t, err)
	assert.Equal(t, first.NodeID(), second.NodeID())

	require.Error(t, r.Store("", first))
}
