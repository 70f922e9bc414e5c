package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func testAccount(name string) *Account {
	return &Account{
		Username:  name,
		Cookie:    "IMGURSESSION=0123456789abcdef; _nc=1",
		UserAgent: "TestAgent/1.0",
	}
}

func TestManagerLifecycle(t *testing.T) {
	manager, store := NewMockManager()

	require.NoError(t, manager.Store(testAccount("alice")))
	assert.Equal(t, 1, store.Count())

	got, err := manager.Retrieve("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, testAccount("alice").Cookie, got.Cookie)
	assert.False(t, got.LastModified.IsZero())

	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, manager.Delete("alice"))
	_, err = manager.Retrieve("alice")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, manager.Delete("alice"), ErrCredentialsNotFound)
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	assert.Error(t, manager.Store(nil))
	assert.Error(t, manager.Store(&Account{Cookie: "x"}))
	assert.Error(t, manager.Store(&Account{Username: "alice", Cookie: "  "}))
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	backup := NewMockStore()
	manager := NewManagerWithStores(broken, backup)

	require.NoError(t, manager.Store(testAccount("alice")))
	assert.Equal(t, 0, broken.Count())
	assert.True(t, backup.Exists("alice"))
}

func TestManagerStoreFailsWhenEveryStoreFails(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("disk full")
	manager := NewManagerWithStores(broken, NewEnvironmentStore())

	err := manager.Store(testAccount("alice"))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestManagerListKeepsNewestCopy(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()
	stale := testAccount("alice")
	stale.Cookie = "old-cookie-value"
	stale.LastModified = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := testAccount("alice")
	fresh.LastModified = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, older.Store(stale))
	require.NoError(t, newer.Store(fresh))
	require.NoError(t, newer.Store(testAccount("bob")))

	manager := NewManagerWithStores(older, newer)
	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alice", accounts[0].Username)
	assert.Equal(t, fresh.Cookie, accounts[0].Cookie)
	assert.Equal(t, "bob", accounts[1].Username)

	def, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "alice", def.Username)
}

func TestManagerRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv(EnvCookie, "env-cookie-value")
	t.Setenv(EnvUsername, "carol")

	manager, store := NewMockManager()
	require.NoError(t, store.Store(testAccount("alice")))
	manager.stores = append(manager.stores, NewEnvironmentStore())

	def, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "carol", def.Username)
	assert.Equal(t, "env-cookie-value", def.Cookie)
}

func TestRetrieveDefaultWithoutAccounts(t *testing.T) {
	manager, _ := NewMockManager()
	_, err := manager.RetrieveDefault()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestSanitizeAccount(t *testing.T) {
	account := testAccount("alice")
	masked := SanitizeAccount(account)

	assert.Equal(t, "alice", masked.Username)
	assert.NotEqual(t, account.Cookie, masked.Cookie)
	assert.Equal(t, "IMGU...nc=1", masked.Cookie)
	assert.Equal(t, "********", maskString("short"))
	assert.Nil(t, SanitizeAccount(nil))
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()
	t.Setenv(EnvCookie, "")
	t.Setenv(EnvUsername, "")

	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)

	t.Setenv(EnvCookie, "cookie")
	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "default", account.Username)

	t.Setenv(EnvUsername, "alice")
	assert.True(t, store.Exists("alice"))
	assert.False(t, store.Exists("bob"))
	assert.ErrorIs(t, store.Store(testAccount("alice")), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("alice"), ErrStoreUnavailable)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "nested", passphraseName))
	require.NoError(t, err)

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)

	require.NoError(t, store.Store(testAccount("alice")))
	require.NoError(t, store.Store(testAccount("bob")))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "IMGURSESSION")

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Retrieve("bob")
	require.NoError(t, err)
	assert.Equal(t, testAccount("bob").Cookie, got.Cookie)

	require.NoError(t, reopened.Delete("alice"))
	assert.False(t, reopened.Exists("alice"))
	require.NoError(t, reopened.Delete("bob"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, reopened.Delete("bob"), ErrCredentialsNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(EnvPassphrase, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(testAccount("alice")))

	t.Setenv(EnvPassphrase, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("alice")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(testAccount("alice")))
	require.NoError(t, store.Store(testAccount("bob")))
	assert.True(t, store.Exists("alice"))

	accounts, err := store.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	require.NoError(t, store.Delete("alice"))
	assert.ErrorIs(t, store.Delete("alice"), ErrCredentialsNotFound)
	_, err = store.Retrieve("alice")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	accounts, err = store.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "bob", accounts[0].Username)
}

func TestNewManagerUsesDirectory(t *testing.T) {
	keyring.MockInitWithError(errors.New("no keychain"))
	t.Setenv(EnvPassphrase, "pass")
	t.Setenv(EnvCookie, "")
	dir := t.TempDir()

	manager, err := NewManager(dir)
	require.NoError(t, err)
	require.NoError(t, manager.Store(testAccount("alice")))

	_, err = os.Stat(filepath.Join(dir, "credentials.enc"))
	assert.NoError(t, err)
}
