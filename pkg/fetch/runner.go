package fetch

import (
	"context"

	"imgurstats/pkg/config"
	"imgurstats/pkg/report"
	"imgurstats/pkg/stats"
)

// Client is everything a fetch needs from imgur.
type Client interface {
	PostClient
	ImageClient
}

// Runner wires sources, drivers and the report backups into the fetch
// commands: a full posts fetch, a full images fetch and a refresh.
type Runner struct {
	options
	client Client
	cfg    config.FetchConfig
}

// NewRunner creates a runner. opts are applied to every driver it starts;
// the sleep option also paces the image view batches.
func NewRunner(client Client, cfg config.FetchConfig, opts ...Option) *Runner {
	return &Runner{options: newOptions(opts), client: client, cfg: cfg}
}

// driver starts a session for source. backup runs once the session reaches
// SAVING, so declined and cancelled sessions keep the previous baseline.
func (r *Runner) driver(source PageSource, backup func(*stats.Session)) *Driver {
	o := r.options
	o.beforeSave = backup
	return &Driver{options: o, cfg: r.cfg, source: source}
}

func backupAll(sess *stats.Session) {
	report.BackupPosts(sess.Store, sess.Scope)
	report.BackupImages(sess.Store, sess.Scope)
}

func backupImages(sess *stats.Session) {
	report.BackupImages(sess.Store, sess.Scope)
}

func (r *Runner) summarize(sess *stats.Session, res *Result) {
	if res == nil || res.State != StateDone {
		return
	}
	if _, err := report.BuildSummary(sess.Store, sess.Scope, true, sess.Now()); err != nil {
		sess.Log.WithError(err).Warn("failed to rebuild the posts summary")
	}
}

// FetchPosts runs a full fetch of every post of the session scope. The
// previous summary and top list are backed up right before the new data is
// saved.
func (r *Runner) FetchPosts(ctx context.Context, sess *stats.Session) (*Result, error) {
	res, err := r.driver(NewPostSource(r.client), backupAll).Run(ctx, sess, r.cfg.PagesPerRound, false)
	if err != nil {
		return res, err
	}
	r.summarize(sess, res)
	return res, nil
}

// FetchImages runs a full fetch of the views of every image of the session
// scope.
func (r *Runner) FetchImages(ctx context.Context, sess *stats.Session) (*Result, error) {
	source := NewImageSource(r.client, r.cfg, r.sleep)
	return r.driver(source, backupImages).Run(ctx, sess, r.cfg.PagesPerRound, false)
}

// Refresh merges the newest pages into the saved data. It refreshes posts
// and then images, or only images when imagesOnly is set. The image step is
// skipped once the posts step was cancelled.
func (r *Runner) Refresh(ctx context.Context, sess *stats.Session, imagesOnly bool) ([]*Result, error) {
	images := NewImageSource(r.client, r.cfg, r.sleep)

	if imagesOnly {
		res, err := r.driver(images, backupAll).Run(ctx, sess, r.cfg.ImageOnlyPages, true)
		return []*Result{res}, err
	}

	posts, err := r.driver(NewPostSource(r.client), backupAll).Run(ctx, sess, r.cfg.RefreshPostPages, true)
	if err != nil {
		return []*Result{posts}, err
	}
	r.summarize(sess, posts)
	if posts.State == StateCancelled || sess.Cancelled() {
		return []*Result{posts}, nil
	}

	res, err := r.driver(images, nil).Run(ctx, sess, r.cfg.RefreshImagePages, true)
	return []*Result{posts, res}, err
}
