package fetch

import (
	"context"
	"encoding/json"
	"time"

	"imgurstats/pkg/imgur"
	"imgurstats/pkg/stats"
	"imgurstats/pkg/store"
)

// PostClient lists an account's submissions.
type PostClient interface {
	Submissions(ctx context.Context, user string, page int) ([]imgur.Submission, error)
}

// PostSource fetches the post listing of a scope. Views of the account's own
// posts feed the score ledger and the top list; every post becomes a
// PostRecord of the saved post list.
type PostSource struct {
	client    PostClient
	comps     *Components
	merge     bool
	records   []stats.PostRecord
	processed int
}

// NewPostSource creates a post source over client.
func NewPostSource(client PostClient) *PostSource {
	return &PostSource{client: client}
}

func (s *PostSource) Name() string { return "posts" }

func (s *PostSource) Init(comps *Components, merge bool) {
	s.comps = comps
	s.merge = merge
	s.records = nil
	s.processed = 0
}

func (s *PostSource) Progress() (int, int) { return s.processed, 0 }

// Records returns the posts collected so far.
func (s *PostSource) Records() []stats.PostRecord { return s.records }

func (s *PostSource) FetchPage(ctx context.Context, index int) Outcome {
	sess := s.comps.Session
	posts, err := s.client.Submissions(ctx, sess.Scope, index)
	if err != nil {
		sess.Log.WithError(err).WarnWithFields("post page failed, treating as end of data", map[string]interface{}{"page": index})
		return Exhausted
	}
	if len(posts) == 0 {
		return Exhausted
	}

	owner := sess.Owner()
	for _, post := range posts {
		if owner {
			s.applyViews(post)
		}
		s.records = append(s.records, recordFromSubmission(post))
		s.processed++
	}
	return Advance
}

func (s *PostSource) applyViews(post imgur.Submission) {
	var entries []stats.Entry
	if !bool(post.IsAlbum) {
		entries = append(entries, stats.Entry{ID: post.ID, Score: int64(post.Views)})
		s.comps.Ext.Add(post.ID, stats.ExtFromMime(post.Type))
	} else {
		for _, img := range post.Images {
			entries = append(entries, stats.Entry{ID: img.ID, Score: int64(img.Views)})
			s.comps.Ext.Add(img.ID, stats.ExtFromMime(img.Type))
		}
	}
	s.comps.Top.AddMany(entries)
	applied := s.comps.Ledger.AddMany(entries)
	s.comps.Session.Metrics.AddApplied(s.Name(), applied)
}

func recordFromSubmission(post imgur.Submission) stats.PostRecord {
	return stats.PostRecord{
		Hash:          post.ID,
		Title:         post.Title,
		Points:        int64(post.Points),
		Ups:           int64(post.Ups),
		Downs:         int64(post.Downs),
		Views:         int64(post.Views),
		CommentCount:  int64(post.CommentCount),
		FavoriteCount: int64(post.FavoriteCount),
		Viral:         bool(post.InMostViral),
		Timestamp:     stats.FormatTimestamp(time.Unix(int64(post.Datetime), 0)),
	}
}

// Save writes the shared stats and the post list. In merge mode the fetched
// posts are reconciled with the saved list; otherwise they replace it.
func (s *PostSource) Save(comps *Components, merge bool) bool {
	sess := comps.Session
	if sess.Cancelled() {
		sess.Log.Debug("not saving posts because the fetch was cancelled")
		return false
	}
	if len(s.records) == 0 {
		sess.Log.Info("no posts fetched, nothing to save")
		return false
	}

	ok := comps.Save()

	final := s.records
	if merge {
		saved, _, err := stats.LoadPosts(sess.Store, sess.Scope)
		if err != nil {
			sess.Log.WithError(err).Warn("saved posts are unreadable, keeping only fetched posts")
		}
		var updated, added int
		final, updated, added = stats.MergePosts(saved, s.records)
		sess.Log.InfoWithFields("merged posts", map[string]interface{}{
			"fetched": len(s.records),
			"updated": updated,
			"added":   added,
			"total":   len(final),
		})
	}

	data, err := json.Marshal(final)
	if err != nil {
		sess.Log.WithError(err).Error("failed to encode posts")
		return false
	}
	ok = sess.Store.Put(sess.Scope, store.KeyPostsData, string(data)) && ok
	ok = sess.Store.Put(sess.Scope, store.KeyLastModPosts, stats.FormatTimestamp(sess.Now())) && ok
	return ok
}
