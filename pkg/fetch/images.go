package fetch

import (
	"context"
	"time"

	"imgurstats/pkg/config"
	"imgurstats/pkg/imgur"
	"imgurstats/pkg/retry"
)

// ImageClient lists an account's images and their views.
type ImageClient interface {
	ImagesPage(ctx context.Context, user string, page, perPage int) (*imgur.ImagesPage, error)
	Views(ctx context.Context, user string, hashes []string) (imgur.Views, error)
}

// ImageSource fetches views of every image of a scope in two phases: a page
// of the image listing queues hashes, then the queue is drained through the
// views endpoint in batches.
type ImageSource struct {
	client       ImageClient
	perPage      int
	batchDelay   time.Duration
	refreshPages int
	sleep        retry.SleepFunc

	comps     *Components
	merge     bool
	queue     []string
	processed int
	total     int
}

// NewImageSource creates an image source over client.
func NewImageSource(client ImageClient, cfg config.FetchConfig, sleep retry.SleepFunc) *ImageSource {
	if sleep == nil {
		sleep = retry.Wait
	}
	perPage := cfg.ImagesPerPage
	if perPage <= 0 || perPage > imgur.MaxViewsBatch {
		perPage = imgur.MaxViewsBatch
	}
	return &ImageSource{
		client:       client,
		perPage:      perPage,
		batchDelay:   cfg.BatchDelay,
		refreshPages: cfg.RefreshPages,
		sleep:        sleep,
	}
}

func (s *ImageSource) Name() string { return "images" }

// Init queues the current top list in merge mode so a refresh always
// re-checks the leaderboard.
func (s *ImageSource) Init(comps *Components, merge bool) {
	s.comps = comps
	s.merge = merge
	s.queue = nil
	s.processed = 0
	s.total = 0
	if merge {
		s.queue = append(s.queue, comps.Top.IDs()...)
	}
}

func (s *ImageSource) Progress() (int, int) { return s.processed, s.total }

// Pending returns the number of queued hashes.
func (s *ImageSource) Pending() int { return len(s.queue) }

func (s *ImageSource) FetchPage(ctx context.Context, index int) Outcome {
	sess := s.comps.Session

	listing, err := s.client.ImagesPage(ctx, sess.Scope, index, s.perPage)
	if err != nil {
		sess.Log.WithError(err).WarnWithFields("image page failed, treating as end of data", map[string]interface{}{"page": index})
		return Exhausted
	}

	if s.merge {
		s.total = s.refreshPages*s.perPage + sess.Ranking.SaveSize
	} else if n := int(listing.Count); n > s.total {
		s.total = n
	}
	for _, img := range listing.Images {
		if img.Hash == "" {
			continue
		}
		s.comps.Ext.Add(img.Hash, img.Ext)
		s.queue = append(s.queue, img.Hash)
	}
	if len(s.queue) == 0 {
		return Exhausted
	}

	for len(s.queue) > 0 && !sess.Cancelled() {
		n := imgur.MaxViewsBatch
		if n > len(s.queue) {
			n = len(s.queue)
		}
		batch := s.queue[:n]
		s.queue = s.queue[n:]

		views, err := s.client.Views(ctx, sess.Scope, batch)
		if err != nil {
			sess.Log.WithError(err).WarnWithFields("views batch failed, treating as end of data", map[string]interface{}{
				"page":  index,
				"batch": len(batch),
			})
			return Exhausted
		}

		entries := views.Entries()
		s.comps.Top.AddMany(entries)
		applied := s.comps.Ledger.AddMany(entries)
		s.processed += applied
		sess.Metrics.AddApplied(s.Name(), applied)

		if len(s.queue) > 0 {
			if err := s.sleep(ctx, s.batchDelay); err != nil {
				sess.Cancel.Cancel()
			}
		}
	}
	return Advance
}

// Save writes the shared stats; images have nothing else to persist.
func (s *ImageSource) Save(comps *Components, merge bool) bool {
	return comps.Save()
}
