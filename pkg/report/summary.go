package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"imgurstats/pkg/stats"
	"imgurstats/pkg/store"
)

// ErrNoData is returned when a scope has no saved posts or images.
var ErrNoData = errors.New("no saved data, run a full fetch first")

const (
	KeyTotalCount = "totalcount"
	KeyDate       = "date"
	KeyUsername   = "username"
)

// Field is one displayed summary line.
type Field struct {
	Key   string
	Label string
}

// SummaryFields are the summary lines in display order.
var SummaryFields = []Field{
	{KeyDate, "Date gathered"},
	{KeyTotalCount, "Total Posts"},
	{"viral", "Most Viral"},
	{"views", "Views"},
	{"points", "Points"},
	{"favorite_count", "Favorites"},
	{"ups", "Upvotes"},
	{"downs", "Downvotes"},
	{"comment_count", "Comments"},
}

// Summary holds formatted aggregates of a scope's posts plus the date the
// posts were gathered and the scope name.
type Summary map[string]string

// Aggregate sums every integer and boolean field over all post objects of a
// saved post list. Booleans count their true values.
func Aggregate(postsJSON []byte) (map[string]*big.Int, error) {
	dec := json.NewDecoder(bytes.NewReader(postsJSON))
	dec.UseNumber()
	var rows []map[string]interface{}
	if err := dec.Decode(&rows); err != nil {
		return nil, err
	}

	sums := make(map[string]*big.Int)
	add := func(key string, n *big.Int) {
		sum, ok := sums[key]
		if !ok {
			sum = new(big.Int)
			sums[key] = sum
		}
		sum.Add(sum, n)
	}

	for _, row := range rows {
		for key, value := range row {
			switch v := value.(type) {
			case bool:
				if v {
					add(key, big.NewInt(1))
				} else {
					add(key, new(big.Int))
				}
			case json.Number:
				if n, ok := new(big.Int).SetString(v.String(), 10); ok {
					add(key, n)
				}
			}
		}
	}
	sums[KeyTotalCount] = big.NewInt(int64(len(rows)))
	return sums, nil
}

// BuildSummary returns the cached summary of scope, or computes and caches it
// when force is set or nothing is cached.
func BuildSummary(st *store.Store, scope string, force bool, now time.Time) (Summary, error) {
	if !force {
		if cached := st.Get(scope, store.KeySummaryPosts, ""); cached != "" {
			var s Summary
			if err := json.Unmarshal([]byte(cached), &s); err == nil && len(s) > 0 {
				return s, nil
			}
		}
	}

	raw := st.Get(scope, store.KeyPostsData, "")
	if raw == "" {
		return nil, ErrNoData
	}
	sums, err := Aggregate([]byte(raw))
	if err != nil {
		return nil, err
	}

	s := make(Summary, len(sums)+2)
	for key, n := range sums {
		s[key] = stats.FormatSum(n)
	}
	s[KeyDate] = st.Get(scope, store.KeyLastModPosts, "")
	if s[KeyDate] == "" {
		s[KeyDate] = stats.FormatTimestamp(now)
	}
	s[KeyUsername] = scope

	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	st.Put(scope, store.KeySummaryPosts, string(data))
	return s, nil
}

// PriorSummary loads the summary backed up before the last fetch.
func PriorSummary(st *store.Store, scope string) Summary {
	var s Summary
	if raw := st.Get(scope, store.KeyPriorSummaryPosts, ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return Summary{}
		}
	}
	if s == nil {
		s = Summary{}
	}
	return s
}

// Delta describes how field changed since prior: a signed formatted
// difference for numbers and the elapsed time for the date. It is empty when
// nothing changed or there is nothing to compare.
func (s Summary) Delta(prior Summary, key string) string {
	cur, ok := s[key]
	if !ok || cur == "" {
		return ""
	}
	old, ok := prior[key]
	if !ok || old == "" {
		return ""
	}

	if key == KeyDate {
		curTime, err1 := time.ParseInLocation(stats.TimestampLayout, cur, time.Local)
		oldTime, err2 := time.ParseInLocation(stats.TimestampLayout, old, time.Local)
		if err1 != nil || err2 != nil || !curTime.After(oldTime) {
			return ""
		}
		return strings.TrimSpace(humanize.RelTime(oldTime, curTime, "", ""))
	}

	diff := new(big.Int).Sub(parseSigned(cur), parseSigned(old))
	switch diff.Sign() {
	case 0:
		return ""
	case 1:
		return "+" + humanize.BigComma(diff)
	default:
		return humanize.BigComma(diff)
	}
}

func parseSigned(s string) *big.Int {
	n := stats.ParseSum(s)
	if strings.HasPrefix(strings.TrimSpace(s), "-") {
		n.Neg(n)
	}
	return n
}
