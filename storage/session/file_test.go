package sessionstore

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/subdesk/subdesk/core/session"
)

func Test_fileStore_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdesk", "session")
	store := NewFileStore(path)

	_, err := store.Load()
	assert.Equal(t, session.ErrNoCredential, err)

	assert.NoError(t, store.Save("tok123"))
	credential, err := store.Load()
	assert.NoError(t, err)
	assert.Equal(t, "tok123", credential)

	// a later save replaces the credential; at most one is active at a time
	assert.NoError(t, store.Save("tok456"))
	credential, err = store.Load()
	assert.NoError(t, err)
	assert.Equal(t, "tok456", credential)

	assert.NoError(t, store.Clear())
	_, err = store.Load()
	assert.Equal(t, session.ErrNoCredential, err)

	// clearing an already-empty store is not an error
	assert.NoError(t, store.Clear())
}

func Test_fileStore_survivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	if err := NewFileStore(path).Save("tok123"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	// a fresh store instance stands in for a new process
	credential, err := NewFileStore(path).Load()
	assert.NoError(t, err)
	assert.Equal(t, "tok123", credential)
}

func Test_fileStore_permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	path := filepath.Join(t.TempDir(), "session")
	store := NewFileStore(path)
	if err := store.Save("tok123"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	info, err := os.Stat(path)
	assert.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func Test_fileStore_blankCredential(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	store := NewFileStore(path)
	if err := store.Save("  \n"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	_, err := store.Load()
	assert.Equal(t, session.ErrNoCredential, err)
}

func Test_inMemStore(t *testing.T) {
	store := NewInMemStore()
	_, err := store.Load()
	assert.Equal(t, session.ErrNoCredential, err)

	assert.NoError(t, store.Save("tok"))
	credential, err := store.Load()
	assert.NoError(t, err)
	assert.Equal(t, "tok", credential)

	assert.NoError(t, store.Clear())
	_, err = store.Load()
	assert.Equal(t, session.ErrNoCredential, err)
}
