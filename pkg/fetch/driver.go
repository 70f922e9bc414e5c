package fetch

import (
	"context"
	"fmt"

	"imgurstats/pkg/config"
	errs "imgurstats/pkg/errors"
	"imgurstats/pkg/logger"
	"imgurstats/pkg/retry"
	"imgurstats/pkg/stats"
)

// State is the phase of a fetch session
type State string

const (
	StateInit            State = "INIT"
	StateFetching        State = "FETCHING"
	StateExhausted       State = "EXHAUSTED"
	StateCancelled       State = "CANCELLED"
	StateThrottleBackoff State = "THROTTLE_BACKOFF"
	StateSaving          State = "SAVING"
	StateDone            State = "DONE"
)

// Outcome is the result of one page step
type Outcome int

const (
	// Advance means the page had data and paging should continue.
	Advance Outcome = iota
	// Exhausted means there is no more data, or the page failed.
	Exhausted
)

func (o Outcome) String() string {
	if o == Exhausted {
		return "exhausted"
	}
	return "advance"
}

// PageSource is the kind-specific half of a fetch: it knows how to fetch one
// page and how to persist what it collected.
type PageSource interface {
	// Name labels logs and metrics.
	Name() string
	// Init is called once the session components are loaded.
	Init(comps *Components, merge bool)
	// FetchPage fetches page index. Failures are reported as Exhausted.
	FetchPage(ctx context.Context, index int) Outcome
	// Progress returns how many items were processed and the expected total,
	// which is 0 when unknown.
	Progress() (processed, total int)
	// Save persists everything collected. It is not called after cancellation.
	Save(comps *Components, merge bool) bool
}

// Confirmer asks the user to accept the risk of a full fetch.
type Confirmer interface {
	Confirm(scope string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(scope string) bool

func (f ConfirmFunc) Confirm(scope string) bool { return f(scope) }

// AlwaysConfirm accepts every full fetch.
var AlwaysConfirm = ConfirmFunc(func(string) bool { return true })

// Step describes the progress after one page.
type Step struct {
	Page          int
	PagesPerRound int
	Processed     int
	Total         int
}

// Fraction is the completed share of the fetch, from the item count when the
// total is known and from the page position otherwise.
func (s Step) Fraction() float64 {
	if s.Total > 0 {
		f := float64(s.Processed) / float64(s.Total)
		if f > 1 {
			f = 1
		}
		return f
	}
	if s.PagesPerRound > 0 {
		return float64(s.Page%s.PagesPerRound) / float64(s.PagesPerRound)
	}
	return 0
}

// Progress receives session events for display.
type Progress interface {
	OnState(scope string, state State)
	OnStep(scope string, step Step)
	OnNotice(scope, message string)
}

type nopProgress struct{}

func (nopProgress) OnState(string, State)   {}
func (nopProgress) OnStep(string, Step)     {}
func (nopProgress) OnNotice(string, string) {}

// Result summarises a finished session.
type Result struct {
	State     State
	Pages     int
	Processed int
	Total     int
	Saved     bool
}

// Components are the per-scope stats loaded for one session.
type Components struct {
	Session *stats.Session
	Top     *stats.TopN
	Ledger  *stats.ScoreLedger
	Ext     *stats.ExtTable
}

func newComponents(sess *stats.Session) (*Components, error) {
	if sess == nil || sess.Store == nil || sess.Sums == nil || sess.Scope == "" {
		return nil, fmt.Errorf("%w: session has no scope or store", errs.ErrResourceExhausted)
	}
	if sess.Cancel == nil {
		sess.Cancel = &stats.CancelFlag{}
	}

	comps := &Components{
		Session: sess,
		Top:     stats.NewTopN(sess),
		Ledger:  stats.NewScoreLedger(sess),
		Ext:     stats.NewExtTable(sess),
	}
	comps.Top.Init()
	comps.Ext.Init()
	comps.Ledger.Init()
	return comps, nil
}

// Save writes the file types, the score ledger and the top list.
func (c *Components) Save() bool {
	if c.Session.Cancelled() {
		c.Session.Log.Debug("not saving data because the fetch was cancelled")
		return false
	}
	ok := c.Ext.Save()
	ok = c.Ledger.Save() && ok
	ok = c.Top.Save() && ok
	return ok
}

// options are the settings shared by a Driver and the Runner that starts it.
type options struct {
	confirm    Confirmer
	progress   Progress
	sleep      retry.SleepFunc
	beforeSave func(sess *stats.Session)
}

func newOptions(opts []Option) options {
	o := options{
		confirm:  AlwaysConfirm,
		progress: nopProgress{},
		sleep:    retry.Wait,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Driver runs the paging loop of one PageSource.
type Driver struct {
	options
	cfg    config.FetchConfig
	source PageSource
}

// Option configures a Driver or a Runner
type Option func(*options)

// WithConfirmer sets who is asked before a full fetch.
func WithConfirmer(c Confirmer) Option {
	return func(o *options) { o.confirm = c }
}

// WithProgress sets the progress receiver.
func WithProgress(p Progress) Option {
	return func(o *options) { o.progress = p }
}

// WithSleep replaces the pacing sleep.
func WithSleep(sleep retry.SleepFunc) Option {
	return func(o *options) { o.sleep = sleep }
}

// WithBeforeSave runs fn in SAVING, right before the source persists its
// data. It never runs for a declined or cancelled session.
func WithBeforeSave(fn func(sess *stats.Session)) Option {
	return func(o *options) { o.beforeSave = fn }
}

// NewDriver creates a driver for source.
func NewDriver(source PageSource, cfg config.FetchConfig, opts ...Option) *Driver {
	return &Driver{options: newOptions(opts), cfg: cfg, source: source}
}

func (d *Driver) transition(sess *stats.Session, res *Result, to State) {
	logger.LogSessionState(sess.Log, sess.ID, sess.Scope, string(res.State), string(to))
	res.State = to
	d.progress.OnState(sess.Scope, to)
}

func (d *Driver) cancelled(ctx context.Context, sess *stats.Session) bool {
	if ctx.Err() != nil {
		sess.Cancel.Cancel()
	}
	return sess.Cancelled()
}

func (d *Driver) abort(sess *stats.Session, res *Result) *Result {
	d.transition(sess, res, StateCancelled)
	sess.Metrics.ObserveSession(d.source.Name(), string(StateCancelled))
	return res
}

// Run fetches scope page by page and saves the result.
//
// A full fetch (merge false) must be confirmed first; a refusal returns
// errs.ErrRiskDeclined without touching anything. Merge mode runs a single
// round of pagesPerRound pages, a full fetch up to MaxRounds rounds with a
// slower pace and a cooldown after every round that did not reach the end.
// Cancellation through sess.Cancel or ctx stops the session without saving
// and is not an error.
func (d *Driver) Run(ctx context.Context, sess *stats.Session, pagesPerRound int, merge bool) (*Result, error) {
	res := &Result{State: StateInit}
	name := d.source.Name()

	if !merge && !d.confirm.Confirm(scopeOf(sess)) {
		return res, errs.ErrRiskDeclined
	}
	if pagesPerRound <= 0 {
		pagesPerRound = d.cfg.PagesPerRound
	}

	comps, err := newComponents(sess)
	if err != nil {
		return res, err
	}
	log := sess.Log.WithField("source", name)
	logger.LogComponentStart(log, "fetch", map[string]interface{}{
		"merge":           merge,
		"pages_per_round": pagesPerRound,
	})

	d.source.Init(comps, merge)
	d.transition(sess, res, StateFetching)

	rounds := 1
	if !merge {
		rounds = d.cfg.MaxRounds
	}
	pacing := &retry.ExponentialBackoff{
		BaseDelay:  d.cfg.InitialDelay,
		MaxDelay:   d.cfg.MaxDelay,
		Multiplier: 2,
	}
	throttles := 0
	delay := pacing.NextDelay(throttles + 1)
	sess.Metrics.SetPageDelay(delay)

	exhausted := false
	for round := 0; round < rounds && !exhausted; round++ {
		for step := 0; step < pagesPerRound; step++ {
			index := step + round*pagesPerRound
			outcome := d.source.FetchPage(ctx, index)
			res.Pages++
			res.Processed, res.Total = d.source.Progress()

			if d.cancelled(ctx, sess) {
				return d.abort(sess, res), nil
			}
			sess.Metrics.ObservePage(name, outcome.String())
			if outcome == Exhausted {
				exhausted = true
				break
			}

			logger.LogFetchStep(log, sess.Scope, index, res.Processed, res.Total)
			d.progress.OnStep(sess.Scope, Step{
				Page:          index,
				PagesPerRound: pagesPerRound,
				Processed:     res.Processed,
				Total:         res.Total,
			})

			if err := d.sleep(ctx, delay); err != nil {
				sess.Cancel.Cancel()
			}
			if d.cancelled(ctx, sess) {
				return d.abort(sess, res), nil
			}
		}

		if !exhausted && !merge {
			log.WarnWithFields("lots of data, slowing down", map[string]interface{}{
				"round": round + 1,
				"pages": res.Pages,
			})
			d.progress.OnNotice(sess.Scope, "There is a lot of data, slowing down to go easy on imgur.")
			d.transition(sess, res, StateThrottleBackoff)

			throttles++
			delay = pacing.NextDelay(throttles + 1)
			sess.Metrics.SetPageDelay(delay)
			if err := d.sleep(ctx, d.cfg.Cooldown); err != nil {
				sess.Cancel.Cancel()
			}
			if d.cancelled(ctx, sess) {
				return d.abort(sess, res), nil
			}
			if round+1 < rounds {
				d.transition(sess, res, StateFetching)
			}
		}
	}

	if exhausted {
		d.transition(sess, res, StateExhausted)
	}
	if d.cancelled(ctx, sess) {
		return d.abort(sess, res), nil
	}
	d.transition(sess, res, StateSaving)
	if d.beforeSave != nil {
		d.beforeSave(sess)
	}
	res.Saved = d.source.Save(comps, merge)
	res.Processed, res.Total = d.source.Progress()
	d.transition(sess, res, StateDone)

	sess.Metrics.ObserveSession(name, string(StateDone))
	log.InfoWithFields("fetch finished", map[string]interface{}{
		"pages":     res.Pages,
		"processed": res.Processed,
		"saved":     res.Saved,
		"exhausted": exhausted,
	})
	return res, nil
}

func scopeOf(sess *stats.Session) string {
	if sess == nil {
		return ""
	}
	return sess.Scope
}
