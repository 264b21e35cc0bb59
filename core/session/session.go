package session

import "errors"

var (
	// errors
	ErrNoCredential = errors.New("no credential stored")
	ErrLoginFailed  = errors.New("login failed")
)

// Store holds the bearer credential of the active session.
//
// The store is a dumb holder: it does no expiry tracking of its own. A stored
// credential means "logged in" as far as the client is concerned; whether it
// is still valid is only ever learnt from the backend's response codes.
type Store interface {
	Save(credential string) error
	Load() (string, error) // ErrNoCredential when absent
	Clear() error
}
