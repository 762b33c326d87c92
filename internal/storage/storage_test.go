package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, store Store) {
	t.Helper()

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(KeyAccessToken, "tok-1"))
	value, err := store.Get(KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", value)

	// Overwrite.
	require.NoError(t, store.Set(KeyAccessToken, "tok-2"))
	value, err = store.Get(KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", value)

	require.NoError(t, store.Delete(KeyAccessToken))
	_, err = store.Get(KeyAccessToken)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting an absent key is not an error.
	assert.NoError(t, store.Delete("missing"))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	defer store.Close()
	runStoreContract(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLite(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	runStoreContract(t, store)
}

func TestSQLiteStorePersistsAcrossReopens(t *testing.T) {
	dir := t.TempDir()

	store, err := NewSQLite(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set(KeyGuestSessionID, "guest_42"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLite(dir)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(KeyGuestSessionID)
	require.NoError(t, err)
	assert.Equal(t, "guest_42", value)
}

func TestSQLiteStoreCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")

	store, err := NewSQLite(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set("k", "v"))
}
