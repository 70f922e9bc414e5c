package fetch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "imgurstats/pkg/errors"
	"imgurstats/pkg/imgur"
	"imgurstats/pkg/stats"
	"imgurstats/pkg/store"
)

func TestStepFraction(t *testing.T) {
	tests := []struct {
		name string
		step Step
		want float64
	}{
		{"from items", Step{Processed: 30, Total: 120}, 0.25},
		{"items capped", Step{Processed: 150, Total: 120}, 1},
		{"from pages", Step{Page: 4, PagesPerRound: 8}, 0.5},
		{"page position wraps per round", Step{Page: 10, PagesPerRound: 8}, 0.25},
		{"nothing known", Step{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.step.Fraction(), 1e-9)
		})
	}
}

func TestRunStopsAtEndOfData(t *testing.T) {
	sess, st := ownerSession(t)
	client := newFakeClient()
	client.posts = [][]imgur.Submission{
		{submission("p1", 400), submission("p2", 300)},
		{submission("p3", 200)},
	}
	sleeper := &sleepRecorder{}
	progress := &progressRecorder{}

	d := NewDriver(NewPostSource(client), testFetchConfig(), WithSleep(sleeper.sleep), WithProgress(progress))
	res, err := d.Run(context.Background(), sess, 0, false)
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 3, res.Processed)
	assert.True(t, res.Saved)
	assert.Equal(t, []int{0, 1, 2}, client.postCalls)
	assert.Equal(t, repeatDelay(500*time.Millisecond, 2), sleeper.recorded())
	assert.Equal(t, []State{StateFetching, StateExhausted, StateSaving, StateDone}, progress.states)
	assert.Len(t, progress.steps, 2)
	assert.Empty(t, progress.notices)

	assert.Equal(t, []string{"p1", "p2", "p3"}, savedPostHashes(t, st, "alice"))
	assert.Equal(t, stats.FormatTimestamp(fixedNow), st.Get("alice", store.KeyLastModPosts, ""))
	assert.Equal(t, `[{"p1":400},{"p2":300},{"p3":200}]`, st.Get("alice", store.KeyTopViews, ""))
	assert.Equal(t, "900", st.Get("alice", store.KeyViewsSum, ""))
}

func TestRunThrottlesWhileDataKeepsComing(t *testing.T) {
	sess, _ := ownerSession(t)
	client := newFakeClient()
	client.endless = true
	sleeper := &sleepRecorder{}
	progress := &progressRecorder{}

	cfg := testFetchConfig()
	cfg.PagesPerRound = 2
	d := NewDriver(NewPostSource(client), cfg, WithSleep(sleeper.sleep), WithProgress(progress))
	res, err := d.Run(context.Background(), sess, 0, false)
	require.NoError(t, err)

	cooldown := 10 * time.Second
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond, 500 * time.Millisecond, cooldown,
		time.Second, time.Second, cooldown,
		2 * time.Second, 2 * time.Second, cooldown,
	}, sleeper.recorded())
	assert.Equal(t, 6, res.Pages)
	assert.Equal(t, StateDone, res.State)
	assert.Len(t, progress.notices, 3)
	assert.Contains(t, progress.states, StateThrottleBackoff)
	assert.NotContains(t, progress.states, StateExhausted)
}

func TestRunMergeIsOneRoundWithoutBackoff(t *testing.T) {
	sess, _ := ownerSession(t)
	client := newFakeClient()
	client.endless = true
	sleeper := &sleepRecorder{}

	d := NewDriver(NewPostSource(client), testFetchConfig(), WithSleep(sleeper.sleep))
	res, err := d.Run(context.Background(), sess, 2, true)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, []int{0, 1}, client.postCalls)
	assert.Equal(t, repeatDelay(500*time.Millisecond, 2), sleeper.recorded())
}

func TestRunDeclinedTouchesNothing(t *testing.T) {
	sess, st := ownerSession(t)
	client := newFakeClient()
	client.posts = [][]imgur.Submission{{submission("p1", 400)}}
	asked := ""
	started := false

	d := NewDriver(NewPostSource(client), testFetchConfig(),
		WithConfirmer(ConfirmFunc(func(scope string) bool {
			asked = scope
			return false
		})),
		WithBeforeSave(func(*stats.Session) { started = true }),
	)
	res, err := d.Run(context.Background(), sess, 0, false)

	assert.ErrorIs(t, err, errs.ErrRiskDeclined)
	assert.Equal(t, StateInit, res.State)
	assert.Equal(t, "alice", asked)
	assert.False(t, started)
	assert.Empty(t, client.postCalls)
	assert.False(t, st.HasData("alice"))
}

func TestRunMergeSkipsConfirmation(t *testing.T) {
	sess, _ := ownerSession(t)
	client := newFakeClient()
	refuse := ConfirmFunc(func(string) bool { return false })

	d := NewDriver(NewPostSource(client), testFetchConfig(), WithConfirmer(refuse), WithSleep((&sleepRecorder{}).sleep))
	_, err := d.Run(context.Background(), sess, 2, true)
	assert.NoError(t, err)
}

func TestRunCancelledWritesNothing(t *testing.T) {
	sess, st := ownerSession(t)
	client := newFakeClient()
	client.endless = true
	client.onPost = func(page int) {
		if page == 1 {
			sess.Cancel.Cancel()
		}
	}
	progress := &progressRecorder{}

	d := NewDriver(NewPostSource(client), testFetchConfig(), WithSleep((&sleepRecorder{}).sleep), WithProgress(progress))
	res, err := d.Run(context.Background(), sess, 0, false)
	require.NoError(t, err)

	assert.Equal(t, StateCancelled, res.State)
	assert.False(t, res.Saved)
	assert.Equal(t, 2, res.Pages)
	assert.NotContains(t, progress.states, StateSaving)
	for _, key := range []string{store.KeyPostsData, store.KeyTopViews, store.KeyImgViews, store.KeyViewsSum, store.KeyHashTypeBin} {
		assert.Empty(t, st.Get("alice", key, ""), key)
	}
}

func TestRunContextCancelStopsAndWritesNothing(t *testing.T) {
	sess, st := ownerSession(t)
	client := newFakeClient()
	client.endless = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDriver(NewPostSource(client), testFetchConfig())
	res, err := d.Run(ctx, sess, 0, false)
	require.NoError(t, err)

	assert.Equal(t, StateCancelled, res.State)
	assert.True(t, sess.Cancelled())
	assert.False(t, st.HasData("alice"))
}

func TestRunFailedPageEndsPagingAndSaves(t *testing.T) {
	sess, st := ownerSession(t)
	client := newFakeClient()
	client.posts = [][]imgur.Submission{
		{submission("p1", 400)},
		{submission("p2", 300)},
		{submission("p3", 200)},
	}
	client.postErrs[1] = errPageFailed

	d := NewDriver(NewPostSource(client), testFetchConfig(), WithSleep((&sleepRecorder{}).sleep))
	res, err := d.Run(context.Background(), sess, 0, false)
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []int{0, 1}, client.postCalls)
	assert.Equal(t, []string{"p1"}, savedPostHashes(t, st, "alice"))
}

func TestRunWithoutUsableSession(t *testing.T) {
	d := NewDriver(NewPostSource(newFakeClient()), testFetchConfig())

	_, err := d.Run(context.Background(), nil, 0, true)
	assert.ErrorIs(t, err, errs.ErrResourceExhausted)

	sess, _ := ownerSession(t)
	sess.Store = nil
	_, err = d.Run(context.Background(), sess, 0, true)
	assert.ErrorIs(t, err, errs.ErrResourceExhausted)
}

func TestRunBeforeSaveRunsAheadOfSave(t *testing.T) {
	sess, st := ownerSession(t)
	client := newFakeClient()
	client.posts = [][]imgur.Submission{{submission("p1", 400)}}
	var hooked *stats.Session
	postsAtHook := "unset"

	d := NewDriver(NewPostSource(client), testFetchConfig(),
		WithSleep((&sleepRecorder{}).sleep),
		WithBeforeSave(func(s *stats.Session) {
			hooked = s
			postsAtHook = st.Get("alice", store.KeyPostsData, "")
		}))
	res, err := d.Run(context.Background(), sess, 0, false)
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Same(t, sess, hooked)
	assert.Equal(t, "", postsAtHook)
	assert.Equal(t, []string{"p1"}, savedPostHashes(t, st, "alice"))
}

func TestRunCancelledSkipsBeforeSave(t *testing.T) {
	sess, _ := ownerSession(t)
	client := newFakeClient()
	client.endless = true
	client.onPost = func(int) { sess.Cancel.Cancel() }
	called := false

	d := NewDriver(NewPostSource(client), testFetchConfig(),
		WithSleep((&sleepRecorder{}).sleep),
		WithBeforeSave(func(*stats.Session) { called = true }))
	res, err := d.Run(context.Background(), sess, 0, false)
	require.NoError(t, err)

	assert.Equal(t, StateCancelled, res.State)
	assert.False(t, called)
}
