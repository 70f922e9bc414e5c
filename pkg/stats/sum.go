package stats

import (
	"math/big"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"imgurstats/pkg/logger"
	"imgurstats/pkg/store"
)

// SumLedger keeps one arbitrary-precision running total per scope. Totals are
// loaded lazily, changed in memory and written back by Save.
type SumLedger struct {
	mu    sync.Mutex
	store *store.Store
	log   logger.Logger
	sums  map[string]*big.Int
}

// NewSumLedger creates an empty registry backed by st.
func NewSumLedger(st *store.Store, log logger.Logger) *SumLedger {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &SumLedger{store: st, log: log, sums: make(map[string]*big.Int)}
}

// Init loads the saved total for scope unless it is already resident.
func (l *SumLedger) Init(scope string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sums[scope]; ok {
		return
	}
	l.sums[scope] = ParseSum(l.store.Get(scope, store.KeyViewsSum, ""))
}

// AddViews adds delta (which may be negative) to the resident total.
func (l *SumLedger) AddViews(scope string, delta int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum, ok := l.sums[scope]
	if !ok {
		l.log.ErrorWithFields("view sum used before init", map[string]interface{}{"scope": scope})
		return
	}
	sum.Add(sum, big.NewInt(delta))
}

// SubViews removes delta from the resident total.
func (l *SumLedger) SubViews(scope string, delta int64) {
	l.AddViews(scope, -delta)
}

// Save writes the resident total and keeps it in memory.
func (l *SumLedger) Save(scope string) bool {
	l.mu.Lock()
	sum, ok := l.sums[scope]
	var text string
	if ok {
		text = FormatSum(sum)
	}
	l.mu.Unlock()

	if !ok {
		l.log.ErrorWithFields("view sum not found for scope", map[string]interface{}{"scope": scope})
		return false
	}
	return l.store.Put(scope, store.KeyViewsSum, text)
}

// Value returns a copy of the resident total.
func (l *SumLedger) Value(scope string) (*big.Int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum, ok := l.sums[scope]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(sum), true
}

// DisplayString loads the total if needed and formats it with separators.
func (l *SumLedger) DisplayString(scope string) string {
	l.Init(scope)
	sum, _ := l.Value(scope)
	return FormatSum(sum)
}

// FormatSum renders n with thousands separators. n is left untouched.
func FormatSum(n *big.Int) string {
	if n == nil {
		return "0"
	}
	// BigComma divides its argument in place.
	return humanize.BigComma(new(big.Int).Set(n))
}

// ParseSum reads a saved total by dropping every non-digit character.
// Unparsable or empty input is zero.
func ParseSum(s string) *big.Int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)

	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return new(big.Int)
	}
	return n
}
