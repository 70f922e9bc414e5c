package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgurstats/pkg/store"
)

func TestAggregate(t *testing.T) {
	sums, err := Aggregate([]byte(samplePosts))
	require.NoError(t, err)

	assert.Equal(t, "1250", sums["views"].String())
	assert.Equal(t, "15", sums["points"].String())
	assert.Equal(t, "1", sums["viral"].String())
	assert.Equal(t, "2", sums[KeyTotalCount].String())
	_, hasTitle := sums["title"]
	assert.False(t, hasTitle)
}

func TestAggregateBeyondInt64(t *testing.T) {
	sums, err := Aggregate([]byte(`[{"views":9223372036854775807},{"views":9223372036854775807}]`))
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551614", sums["views"].String())
}

func TestAggregateRejectsNonArray(t *testing.T) {
	_, err := Aggregate([]byte(`{"views":1}`))
	assert.Error(t, err)
}

func TestBuildSummary(t *testing.T) {
	st := newTestStore(t)

	_, err := BuildSummary(st, "alice", false, fixedNow)
	assert.ErrorIs(t, err, ErrNoData)

	st.Put("alice", store.KeyPostsData, samplePosts)
	st.Put("alice", store.KeyLastModPosts, "3/9/2024, 2:05:07 PM")

	s, err := BuildSummary(st, "alice", false, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "1,250", s["views"])
	assert.Equal(t, "2", s[KeyTotalCount])
	assert.Equal(t, "3/9/2024, 2:05:07 PM", s[KeyDate])
	assert.Equal(t, "alice", s[KeyUsername])

	cached := st.Get("alice", store.KeySummaryPosts, "")
	var fromStore Summary
	require.NoError(t, json.Unmarshal([]byte(cached), &fromStore))
	assert.Equal(t, s, fromStore)
}

func TestBuildSummaryUsesCacheUnlessForced(t *testing.T) {
	st := newTestStore(t)
	st.Put("alice", store.KeyPostsData, samplePosts)

	first, err := BuildSummary(st, "alice", false, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "3/9/2024, 2:05:07 PM", first[KeyDate])

	st.Put("alice", store.KeyPostsData, `[{"hash":"ccc","views":7}]`)

	cached, err := BuildSummary(st, "alice", false, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "1,250", cached["views"])

	forced, err := BuildSummary(st, "alice", true, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "7", forced["views"])
	assert.Equal(t, "1", forced[KeyTotalCount])
}

func TestSummaryDelta(t *testing.T) {
	cur := Summary{
		"views":  "1,250",
		"points": "15",
		"downs":  "3",
		"ups":    "6",
		KeyDate:  "3/9/2024, 2:05:07 PM",
	}
	prior := Summary{
		"views":  "1,000",
		"points": "15",
		"downs":  "5",
		KeyDate:  "3/7/2024, 2:05:07 PM",
	}

	assert.Equal(t, "+250", cur.Delta(prior, "views"))
	assert.Equal(t, "", cur.Delta(prior, "points"))
	assert.Equal(t, "-2", cur.Delta(prior, "downs"))
	assert.Equal(t, "", cur.Delta(prior, "ups"))
	assert.Equal(t, "", cur.Delta(prior, "missing"))
	assert.Equal(t, "2 days", cur.Delta(prior, KeyDate))
	assert.Equal(t, "", prior.Delta(cur, KeyDate))
}

func TestBackupAndPriorSummary(t *testing.T) {
	st := newTestStore(t)
	assert.Empty(t, PriorSummary(st, "alice"))

	st.Put("alice", store.KeyPostsData, samplePosts)
	_, err := BuildSummary(st, "alice", true, fixedNow)
	require.NoError(t, err)

	BackupPosts(st, "alice")
	prior := PriorSummary(st, "alice")
	assert.Equal(t, "1,250", prior["views"])

	st.Put("alice", store.KeyPriorSummaryPosts, "not json")
	assert.Empty(t, PriorSummary(st, "alice"))
}

func TestBackupImages(t *testing.T) {
	st := newTestStore(t)

	BackupImages(st, "alice")
	assert.Equal(t, "", st.Get("alice", store.KeyPriorTopViews, ""))

	st.Put("alice", store.KeyTopViews, `[{"a":3}]`)
	st.Put("alice", store.KeyLastModImages, "3/9/2024, 2:05:07 PM")
	BackupImages(st, "alice")

	assert.Equal(t, `[{"a":3}]`, st.Get("alice", store.KeyPriorTopViews, ""))
	assert.Equal(t, "3/9/2024, 2:05:07 PM", st.Get("alice", store.KeyPriorTopViewsMod, ""))
}
