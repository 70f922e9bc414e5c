package stats

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"imgurstats/pkg/config"
	"imgurstats/pkg/logger"
	"imgurstats/pkg/metrics"
	"imgurstats/pkg/store"
)

// CancelFlag is the shared cancellation flag polled between fetch steps.
type CancelFlag struct {
	flag atomic.Bool
}

func (c *CancelFlag) Cancel() { c.flag.Store(true) }

// Cancelled is false on a nil flag.
func (c *CancelFlag) Cancelled() bool { return c != nil && c.flag.Load() }

// Account is the signed-in imgur account.
type Account struct {
	Name string
	// Elevated is set for subscribed accounts; it widens the top list and
	// allows saving the top list of other scopes.
	Elevated bool
}

// Session carries everything a per-scope component needs. One Session owns
// the components of one scope for the length of one fetch; components never
// reach for process-wide state.
type Session struct {
	ID      string
	Scope   string
	Account Account
	Store   *store.Store
	Sums    *SumLedger
	Cancel  *CancelFlag
	Ranking config.RankingConfig
	Log     logger.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// NewSession builds a session for scope viewed by account.
func NewSession(st *store.Store, scope string, account Account, ranking config.RankingConfig, log logger.Logger, m *metrics.Metrics) *Session {
	if log == nil {
		log = logger.NewNopLogger()
	}
	id := uuid.NewString()[:12]
	log = log.WithFields(map[string]interface{}{"session": id, "scope": scope})

	return &Session{
		ID:      id,
		Scope:   scope,
		Account: account,
		Store:   st,
		Sums:    NewSumLedger(st, log),
		Cancel:  &CancelFlag{},
		Ranking: ranking,
		Log:     log,
		Metrics: m,
		Now:     time.Now,
	}
}

// Owner reports whether the session scope is the signed-in account.
func (s *Session) Owner() bool {
	return s.Account.Name != "" && s.Account.Name == s.Scope
}

// DisplaySize is how many top entries the account may see.
func (s *Session) DisplaySize() int {
	if s.Account.Elevated {
		return s.Ranking.DisplaySizeElevated
	}
	return s.Ranking.DisplaySize
}

// Cancelled reports whether the session was cancelled.
func (s *Session) Cancelled() bool {
	return s.Cancel.Cancelled()
}

func (s *Session) timestamp() string {
	return FormatTimestamp(s.Now())
}
