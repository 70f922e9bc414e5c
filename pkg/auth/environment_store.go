package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore.
const (
	EnvUsername  = "IMGURSTATS_USERNAME"
	EnvCookie    = "IMGURSTATS_COOKIE"
	EnvUserAgent = "IMGURSTATS_USER_AGENT"
)

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment session. A username that does not match
// IMGURSTATS_USERNAME is not found.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	cookie := os.Getenv(EnvCookie)
	if cookie == "" {
		return nil, ErrCredentialsNotFound
	}

	name := os.Getenv(EnvUsername)
	if username != "" && name != "" && username != name {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = username
	}
	if name == "" {
		name = "default"
	}

	return &Account{
		Username:     name,
		Cookie:       cookie,
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
