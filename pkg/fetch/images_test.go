package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgurstats/pkg/imgur"
	"imgurstats/pkg/stats"
	"imgurstats/pkg/store"
)

func TestImageSourceFullFetch(t *testing.T) {
	sess, st := ownerSession(t)
	client := newFakeClient()
	client.images = []*imgur.ImagesPage{imagesPage(3, "aaa", "bbb", "ccc")}
	client.views = map[string]int64{"aaa": 70, "bbb": 900, "ccc": 20}
	sleeper := &sleepRecorder{}

	source := NewImageSource(client, testFetchConfig(), sleeper.sleep)
	d := NewDriver(source, testFetchConfig(), WithSleep(sleeper.sleep))
	res, err := d.Run(context.Background(), sess, 0, false)
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []int{0, 1}, client.imageCalls)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 3, res.Total)
	assert.True(t, res.Saved)

	assert.Equal(t, `[{"bbb":900},{"aaa":70}]`, st.Get("alice", store.KeyTopViews, ""))
	assert.Equal(t, "970", st.Get("alice", store.KeyViewsSum, ""))
	assert.Equal(t, stats.FormatTimestamp(fixedNow), st.Get("alice", store.KeyLastModImages, ""))

	ext := stats.NewExtTable(sess)
	ext.Init()
	assert.Equal(t, "png", ext.ExtFor("ccc"))
}

func TestImageSourceDrainsInBatches(t *testing.T) {
	sess, _ := ownerSession(t)
	all := hashes("h", 130)
	client := newFakeClient()
	client.images = []*imgur.ImagesPage{imagesPage(130, all...)}
	for _, h := range all {
		client.views[h] = 100
	}
	sleeper := &sleepRecorder{}

	cfg := testFetchConfig()
	source := NewImageSource(client, cfg, sleeper.sleep)
	d := NewDriver(source, cfg, WithSleep(sleeper.sleep))
	res, err := d.Run(context.Background(), sess, 0, false)
	require.NoError(t, err)

	require.Len(t, client.viewCalls, 3)
	assert.Len(t, client.viewCalls[0], imgur.MaxViewsBatch)
	assert.Len(t, client.viewCalls[1], imgur.MaxViewsBatch)
	assert.Len(t, client.viewCalls[2], 10)
	assert.Equal(t, all[:3], client.viewCalls[0][:3])
	assert.Equal(t, 130, res.Processed)
	assert.Equal(t, 0, source.Pending())

	// two batch pauses, then the page delay
	assert.Equal(t, []time.Duration{cfg.BatchDelay, cfg.BatchDelay, cfg.InitialDelay}, sleeper.recorded())
}

func TestImageSourceMergeSeedsTopList(t *testing.T) {
	sess, st := ownerSession(t)
	st.Put("alice", store.KeyTopViews, `[{"top1":5000},{"top2":4000}]`)
	st.Put("alice", store.KeyImgViews, `{"top1":5000,"top2":4000}`)
	st.Put("alice", store.KeyViewsSum, "9000")

	client := newFakeClient()
	client.images = []*imgur.ImagesPage{imagesPage(50, "new1")}
	client.views = map[string]int64{"top1": 5100, "top2": 4000, "new1": 60}

	cfg := testFetchConfig()
	source := NewImageSource(client, cfg, (&sleepRecorder{}).sleep)
	d := NewDriver(source, cfg, WithSleep((&sleepRecorder{}).sleep))
	res, err := d.Run(context.Background(), sess, 3, true)
	require.NoError(t, err)

	require.NotEmpty(t, client.viewCalls)
	assert.Equal(t, []string{"top1", "top2", "new1"}, client.viewCalls[0])
	assert.Equal(t, cfg.RefreshPages*imgur.MaxViewsBatch+sess.Ranking.SaveSize, res.Total)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, []int{0, 1}, client.imageCalls)
	assert.Equal(t, "9,160", st.Get("alice", store.KeyViewsSum, ""))
}

func TestImageSourceEmptyPageWithSeededQueueContinues(t *testing.T) {
	sess, st := ownerSession(t)
	st.Put("alice", store.KeyTopViews, `[{"top1":5000}]`)

	client := newFakeClient()
	client.views = map[string]int64{"top1": 5000}

	source := NewImageSource(client, testFetchConfig(), (&sleepRecorder{}).sleep)
	d := NewDriver(source, testFetchConfig(), WithSleep((&sleepRecorder{}).sleep))
	_, err := d.Run(context.Background(), sess, 3, true)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, client.imageCalls)
	assert.Equal(t, [][]string{{"top1"}}, client.viewCalls)
}

func TestImageSourceViewsFailureEndsPaging(t *testing.T) {
	sess, st := ownerSession(t)
	client := newFakeClient()
	client.images = []*imgur.ImagesPage{imagesPage(4, "a", "b"), imagesPage(4, "c", "d")}
	client.viewsErr = errPageFailed

	source := NewImageSource(client, testFetchConfig(), (&sleepRecorder{}).sleep)
	d := NewDriver(source, testFetchConfig(), WithSleep((&sleepRecorder{}).sleep))
	res, err := d.Run(context.Background(), sess, 0, false)
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []int{0}, client.imageCalls)
	assert.Equal(t, "0", st.Get("alice", store.KeyViewsSum, ""))
}

func TestImageSourceClampsPageSize(t *testing.T) {
	cfg := testFetchConfig()
	cfg.ImagesPerPage = 500
	source := NewImageSource(newFakeClient(), cfg, nil)
	assert.Equal(t, imgur.MaxViewsBatch, source.perPage)
	assert.Equal(t, "images", source.Name())
}
