package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService  = "imgurstats"
	keyringPrefix   = "imgur_"
	keyringIndexKey = "accounts"
)

// KeyringStore implements CredentialStore using the system keychain. The
// keychain cannot enumerate entries, so saved usernames are kept in an
// index entry next to them.
type KeyringStore struct{}

// NewKeyringStore returns a store once a probe write to the keychain works.
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)
	return &KeyringStore{}, nil
}

// Store saves credentials to the system keychain
func (k *KeyringStore) Store(account *Account) error {
	if account == nil || account.Username == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+account.Username, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return k.updateIndex(account.Username, true)
}

// Retrieve gets credentials from the system keychain
func (k *KeyringStore) Retrieve(username string) (*Account, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, keyringPrefix+username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var account Account
	if err := json.Unmarshal([]byte(data), &account); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return &account, nil
}

// List returns every indexed account that can still be read.
func (k *KeyringStore) List() ([]*Account, error) {
	names, err := k.index()
	if err != nil {
		return nil, err
	}
	accounts := make([]*Account, 0, len(names))
	for _, name := range names {
		if account, err := k.Retrieve(name); err == nil {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

// Delete removes credentials from the system keychain
func (k *KeyringStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}

	if err := keyring.Delete(keyringService, keyringPrefix+username); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return k.updateIndex(username, false)
}

// Exists checks if credentials exist in the keychain
func (k *KeyringStore) Exists(username string) bool {
	if username == "" {
		return false
	}
	_, err := keyring.Get(keyringService, keyringPrefix+username)
	return err == nil
}

func (k *KeyringStore) index() ([]string, error) {
	raw, err := keyring.Get(keyringService, keyringIndexKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read keyring index: %w", err)
	}
	names := []string{}
	for _, name := range strings.Split(raw, ",") {
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (k *KeyringStore) updateIndex(username string, present bool) error {
	names, err := k.index()
	if err != nil {
		return err
	}
	set := make(map[string]struct{}, len(names)+1)
	for _, n := range names {
		set[n] = struct{}{}
	}
	if present {
		set[username] = struct{}{}
	} else {
		delete(set, username)
	}

	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	if len(out) == 0 {
		_ = keyring.Delete(keyringService, keyringIndexKey)
		return nil
	}
	return keyring.Set(keyringService, keyringIndexKey, strings.Join(out, ","))
}
