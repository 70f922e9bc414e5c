package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgurstats/pkg/store"
)

func TestMergePostsUpdatesInPlace(t *testing.T) {
	saved := []PostRecord{{Hash: "a", Views: 10}}

	merged, updated, added := MergePosts(saved, []PostRecord{{Hash: "a", Views: 20}})

	assert.Equal(t, []PostRecord{{Hash: "a", Views: 20}}, merged)
	assert.Equal(t, 1, updated)
	assert.Equal(t, 0, added)
	assert.Equal(t, int64(10), saved[0].Views)
}

func TestMergePostsPrependsNew(t *testing.T) {
	saved := []PostRecord{{Hash: "a"}}

	merged, _, added := MergePosts(saved, []PostRecord{{Hash: "b"}})

	assert.Equal(t, []PostRecord{{Hash: "b"}, {Hash: "a"}}, merged)
	assert.Equal(t, 1, added)
}

func TestMergePostsKeepsNewestFirst(t *testing.T) {
	saved := []PostRecord{{Hash: "c", Views: 1}, {Hash: "d", Views: 2}, {Hash: "e", Views: 3}}
	fetched := []PostRecord{{Hash: "a"}, {Hash: "b"}, {Hash: "c", Views: 1}, {Hash: "d", Views: 5}}

	merged, updated, added := MergePosts(saved, fetched)

	hashes := make([]string, len(merged))
	for i, p := range merged {
		hashes[i] = p.Hash
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, hashes)
	assert.Equal(t, int64(5), merged[3].Views)
	assert.Equal(t, 1, updated)
	assert.Equal(t, 2, added)
}

func TestLoadPosts(t *testing.T) {
	st := newTestStore(t)

	posts, stamp, err := LoadPosts(st, "alice")
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Empty(t, stamp)

	require.True(t, st.Put("alice", store.KeyPostsData, `[{"hash":"a","title":"t","views":70,"viral":true}]`))
	require.True(t, st.Put("alice", store.KeyLastModPosts, "1/1/2024, 1:00:00 AM"))
	posts, stamp, err = LoadPosts(st, "alice")
	require.NoError(t, err)
	assert.Equal(t, []PostRecord{{Hash: "a", Title: "t", Views: 70, Viral: true}}, posts)
	assert.Equal(t, "1/1/2024, 1:00:00 AM", stamp)

	require.True(t, st.Put("alice", store.KeyPostsData, `[{"hash":`))
	posts, _, err = LoadPosts(st, "alice")
	assert.Error(t, err)
	assert.Empty(t, posts)
}
