package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgurstats/pkg/store"
)

func TestNormalizeExt(t *testing.T) {
	assert.Equal(t, "jpg", NormalizeExt(".jpg"))
	assert.Equal(t, "png", NormalizeExt(".png?1"))
	assert.Equal(t, "jpg", NormalizeExt("JPEG"))
	assert.Equal(t, "mp4", NormalizeExt("mp4"))
}

func TestExtTableAddAndLookup(t *testing.T) {
	table := NewExtTable(ownerSession(t))
	table.Init()

	table.Add("abc", ".png")
	table.Add("abc", ".png")
	table.Add("vid", ".mp4")
	table.Add("odd", ".webm")
	table.Add("", ".jpg")

	assert.Equal(t, "png", table.ExtFor("abc"))
	assert.Equal(t, "mp4", table.ExtFor("vid"))
	assert.Equal(t, DefaultExt, table.ExtFor("odd"))
	assert.Equal(t, DefaultExt, table.ExtFor("ab"))
	assert.Equal(t, ",abc,", table.bins["png"])
}

func TestExtTableSaveAndReload(t *testing.T) {
	st := newTestStore(t)
	table := NewExtTable(newTestSession(t, st, "alice", Account{Name: "alice"}))
	table.Init()
	table.Add("one", "jpg")
	table.Add("two", "gif")
	require.True(t, table.Save())

	reloaded := NewExtTable(newTestSession(t, st, "alice", Account{Name: "alice"}))
	reloaded.Init()
	assert.Equal(t, "jpg", reloaded.ExtFor("one"))
	assert.Equal(t, "gif", reloaded.ExtFor("two"))
}

func TestExtTableCancelledSave(t *testing.T) {
	st := newTestStore(t)
	sess := newTestSession(t, st, "alice", Account{Name: "alice"})
	table := NewExtTable(sess)
	table.Init()
	table.Add("one", "jpg")

	sess.Cancel.Cancel()
	assert.False(t, table.Save())
	assert.Empty(t, st.Get("alice", store.KeyHashTypeBin, ""))
}

func TestExtFromMime(t *testing.T) {
	assert.Equal(t, "jpg", ExtFromMime("image/jpeg"))
	assert.Equal(t, "png", ExtFromMime("image/png"))
	assert.Equal(t, "mp4", ExtFromMime("video/mp4"))
	assert.Equal(t, "gif", ExtFromMime("image/gif"))
	assert.Equal(t, "gif", ExtFromMime("application/octet-stream"))
	assert.Equal(t, "gifv", LinkExt("mp4"))
	assert.Equal(t, "png", LinkExt("png"))
}
