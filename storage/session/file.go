package sessionstore

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/subdesk/subdesk/core/session"
)

// FileStore persists the bearer credential to a single file so that a new
// process does not force a re-login.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ session.Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (st *FileStore) Save(credential string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(st.path), 0700); err != nil {
		return errors.Wrap(err, "creating session dir")
	}
	if err := ioutil.WriteFile(st.path, []byte(credential), 0600); err != nil {
		return errors.Wrap(err, "writing session file")
	}
	return nil
}

func (st *FileStore) Load() (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	data, err := ioutil.ReadFile(st.path)
	if os.IsNotExist(err) {
		return "", session.ErrNoCredential
	}
	if err != nil {
		return "", errors.Wrap(err, "reading session file")
	}
	credential := strings.TrimSpace(string(data))
	if credential == "" {
		return "", session.ErrNoCredential
	}
	return credential, nil
}

func (st *FileStore) Clear() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if err := os.Remove(st.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing session file")
	}
	return nil
}
