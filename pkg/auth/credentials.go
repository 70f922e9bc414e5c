package auth

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Account is a stored imgur session: the account name and the browser
// cookie that signs requests in as that account.
type Account struct {
	Username     string    `json:"username"`
	Cookie       string    `json:"cookie"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given account
	Store(account *Account) error

	// Retrieve gets credentials for a specific username
	Retrieve(username string) (*Account, error)

	// List returns all stored accounts
	List() ([]*Account, error)

	// Delete removes credentials for a specific username
	Delete(username string) error

	// Exists checks if credentials exist for a username
	Exists(username string) bool
}

// Manager tries its stores in order: the system keychain, an encrypted file
// and finally the environment.
type Manager struct {
	stores []CredentialStore
	now    func() time.Time
}

// DefaultDir is where the encrypted credential file and its passphrase live.
func DefaultDir() string {
	return filepath.Join(xdg.ConfigHome, "imgurstats")
}

// NewManager creates a manager whose file store lives in dir, or in
// DefaultDir when dir is empty.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		dir = DefaultDir()
	}

	var stores []CredentialStore
	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores, now: time.Now}, nil
}

// NewManagerWithStores creates a manager over explicit stores.
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores, now: time.Now}
}

// Store saves credentials using the first store that accepts them.
func (m *Manager) Store(account *Account) error {
	if account == nil || account.Username == "" {
		return errors.New("username is required")
	}
	if strings.TrimSpace(account.Cookie) == "" {
		return errors.New("cookie is required")
	}
	account.LastModified = m.now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(username string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(username); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// RetrieveDefault returns the environment session when one is set, else the
// most recently saved account.
func (m *Manager) RetrieveDefault() (*Account, error) {
	for _, store := range m.stores {
		if env, ok := store.(*EnvironmentStore); ok {
			if account, err := env.Retrieve(""); err == nil {
				return account, nil
			}
		}
	}

	accounts, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrCredentialsNotFound
	}
	latest := accounts[0]
	for _, a := range accounts[1:] {
		if a.LastModified.After(latest.LastModified) {
			latest = a
		}
	}
	return latest, nil
}

// List merges the accounts of every store, keeping the most recent copy of
// each, sorted by username.
func (m *Manager) List() ([]*Account, error) {
	byName := make(map[string]*Account)
	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			if existing, ok := byName[account.Username]; !ok || account.LastModified.After(existing.LastModified) {
				byName[account.Username] = account
			}
		}
	}

	result := make([]*Account, 0, len(byName))
	for _, account := range byName {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(username string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(username); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrCredentialsNotFound) && !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w for user: %s", ErrCredentialsNotFound, username)
}

// SanitizeAccount creates a copy of the account with the cookie masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	return &Account{
		Username:     account.Username,
		Cookie:       maskString(account.Cookie),
		UserAgent:    account.UserAgent,
		LastModified: account.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
