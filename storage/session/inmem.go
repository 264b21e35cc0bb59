package sessionstore

import (
	"sync"

	"github.com/subdesk/subdesk/core/session"
)

// InMemStore is a volatile session.Store for tests.
type InMemStore struct {
	mu         sync.Mutex
	credential string
	set        bool
}

var _ session.Store = (*InMemStore)(nil)

func NewInMemStore() *InMemStore {
	return &InMemStore{}
}

func (st *InMemStore) Save(credential string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.credential = credential
	st.set = true
	return nil
}

func (st *InMemStore) Load() (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.set || st.credential == "" {
		return "", session.ErrNoCredential
	}
	return st.credential, nil
}

func (st *InMemStore) Clear() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.credential = ""
	st.set = false
	return nil
}
