package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveStreamAndOpen(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.SaveStream("har-file-1-session.har", bytes.NewBufferString(`{"log":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "har-file-1-session.har", name)

	file, err := store.Open(name)
	require.NoError(t, err)
	defer file.Close()

	data, err := os.ReadFile(store.Path(name))
	require.NoError(t, err)
	assert.Equal(t, `{"log":{}}`, string(data))
}

func TestDeleteIsIdempotent(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.SaveStream("a.har", bytes.NewBufferString("{}"))
	require.NoError(t, err)

	require.NoError(t, store.Delete("a.har"))
	require.NoError(t, store.Delete("a.har"))
}

func TestCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	_, err = store.SaveStream("old.har", bytes.NewBufferString("{}"))
	require.NoError(t, err)
	_, err = store.SaveStream("fresh.har", bytes.NewBufferString("{}"))
	require.NoError(t, err)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.har"), stale, stale))

	deleted, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.har"}, deleted)

	_, err = os.Stat(filepath.Join(dir, "fresh.har"))
	assert.NoError(t, err)
}
