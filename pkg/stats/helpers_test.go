package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"imgurstats/pkg/config"
	"imgurstats/pkg/logger"
	"imgurstats/pkg/store"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenInMemory(logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestSession(t *testing.T, st *store.Store, scope string, account Account) *Session {
	t.Helper()
	ranking := config.DefaultConfig().Ranking
	sess := NewSession(st, scope, account, ranking, logger.NewTestLogger(), nil)
	sess.Now = func() time.Time { return fixedNow }
	return sess
}

func ownerSession(t *testing.T) *Session {
	t.Helper()
	return newTestSession(t, newTestStore(t), "alice", Account{Name: "alice"})
}
