package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"imgurstats/pkg/config"
	"imgurstats/pkg/imgur"
	"imgurstats/pkg/logger"
	"imgurstats/pkg/stats"
	"imgurstats/pkg/store"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

var errPageFailed = errors.New("page failed")

// fakeClient serves posts and images from memory. A nil page past the end
// of a listing is empty.
type fakeClient struct {
	mu sync.Mutex

	posts      [][]imgur.Submission
	endless    bool
	postErrs   map[int]error
	images     []*imgur.ImagesPage
	imageErrs  map[int]error
	views      map[string]int64
	viewsErr   error
	viewCalls  [][]string
	postCalls  []int
	imageCalls []int
	onPost     func(page int)
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		postErrs:  make(map[int]error),
		imageErrs: make(map[int]error),
		views:     make(map[string]int64),
	}
}

func (f *fakeClient) Submissions(ctx context.Context, user string, page int) ([]imgur.Submission, error) {
	f.mu.Lock()
	f.postCalls = append(f.postCalls, page)
	hook := f.onPost
	err := f.postErrs[page]
	var out []imgur.Submission
	switch {
	case f.endless:
		out = []imgur.Submission{submission(fmt.Sprintf("p%d", page), 100+int64(page))}
	case page < len(f.posts):
		out = f.posts[page]
	}
	f.mu.Unlock()

	if hook != nil {
		hook(page)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeClient) ImagesPage(ctx context.Context, user string, page, perPage int) (*imgur.ImagesPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.imageCalls = append(f.imageCalls, page)
	if err := f.imageErrs[page]; err != nil {
		return nil, err
	}
	if page < len(f.images) {
		return f.images[page], nil
	}
	return &imgur.ImagesPage{}, nil
}

func (f *fakeClient) Views(ctx context.Context, user string, hashes []string) (imgur.Views, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.viewCalls = append(f.viewCalls, append([]string{}, hashes...))
	if f.viewsErr != nil {
		return nil, f.viewsErr
	}
	var out imgur.Views
	for _, h := range hashes {
		if v, ok := f.views[h]; ok {
			out = append(out, stats.Entry{ID: h, Score: v})
		}
	}
	return out, nil
}

func submission(id string, views int64) imgur.Submission {
	return imgur.Submission{
		ID:       id,
		Title:    "post " + id,
		Type:     "image/png",
		Views:    imgur.Count(views),
		Points:   imgur.Count(views / 10),
		Ups:      imgur.Count(views / 8),
		Datetime: imgur.Count(fixedNow.Add(-time.Hour).Unix()),
	}
}

func imagesPage(total int, hashes ...string) *imgur.ImagesPage {
	page := &imgur.ImagesPage{Count: imgur.Count(total)}
	for _, h := range hashes {
		page.Images = append(page.Images, imgur.ImageMeta{Hash: h, Ext: ".png"})
	}
	return page
}

// sleepRecorder records requested delays instead of sleeping.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration{}, r.delays...)
}

// progressRecorder records driver events.
type progressRecorder struct {
	mu      sync.Mutex
	states  []State
	steps   []Step
	notices []string
}

func (p *progressRecorder) OnState(_ string, s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, s)
}

func (p *progressRecorder) OnStep(_ string, s Step) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, s)
}

func (p *progressRecorder) OnNotice(_ string, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, msg)
}

func testFetchConfig() config.FetchConfig {
	cfg := config.DefaultConfig().Fetch
	cfg.PagesPerRound = 3
	cfg.MaxRounds = 3
	return cfg
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenInMemory(logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newSession(t *testing.T, st *store.Store, scope string, account stats.Account) *stats.Session {
	t.Helper()
	sess := stats.NewSession(st, scope, account, config.DefaultConfig().Ranking, logger.NewTestLogger(), nil)
	sess.Now = func() time.Time { return fixedNow }
	return sess
}

func ownerSession(t *testing.T) (*stats.Session, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	return newSession(t, st, "alice", stats.Account{Name: "alice"}), st
}

func savedPostHashes(t *testing.T, st *store.Store, scope string) []string {
	t.Helper()
	posts, _, err := stats.LoadPosts(st, scope)
	require.NoError(t, err)
	hashes := make([]string, len(posts))
	for i, p := range posts {
		hashes[i] = p.Hash
	}
	return hashes
}

func repeatDelay(d time.Duration, n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = d
	}
	return out
}

func hashes(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return out
}
