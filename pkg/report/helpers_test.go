package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"imgurstats/pkg/config"
	"imgurstats/pkg/logger"
	"imgurstats/pkg/stats"
	"imgurstats/pkg/store"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenInMemory(logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestSession(t *testing.T, st *store.Store, scope string, account stats.Account) *stats.Session {
	t.Helper()
	sess := stats.NewSession(st, scope, account, config.DefaultConfig().Ranking, logger.NewTestLogger(), nil)
	sess.Now = func() time.Time { return fixedNow }
	return sess
}

const samplePosts = `[
{"hash":"aaa","title":"first","points":10,"ups":12,"downs":2,"views":1000,"comment_count":3,"favorite_count":1,"viral":true,"timestamp":"3/1/2024, 9:00:00 AM"},
{"hash":"bbb","title":"second","points":5,"ups":6,"downs":1,"views":250,"comment_count":0,"favorite_count":4,"viral":false,"timestamp":"3/5/2024, 6:30:00 PM"}
]`
