package stats

import (
	"sort"

	"imgurstats/pkg/store"
)

// TopN is the bounded ranking of the highest scores of one scope.
//
// Inserts are appended without ordering; compaction dedupes, sorts by score
// descending and trims to SaveSize. It runs when the list grows past twice
// SaveSize and before every read. Dedup keeps the first occurrence of an id,
// not its highest score.
type TopN struct {
	sess     *Session
	entries  []Entry
	minScore int64
	full     bool
	inited   bool
}

// NewTopN creates a tracker for the session scope.
func NewTopN(sess *Session) *TopN {
	return &TopN{sess: sess}
}

// Init loads the saved top list.
func (t *TopN) Init() {
	if t.inited {
		return
	}
	t.entries = nil
	if raw := t.sess.Store.Get(t.sess.Scope, store.KeyTopViews, ""); raw != "" {
		entries, err := DecodeRankedList([]byte(raw))
		if err != nil {
			t.sess.Log.WithError(err).Warn("saved top list is unreadable, starting empty")
		} else {
			t.entries = entries
		}
	}
	t.inited = true
}

// AddMany offers entries to the list. Only the signed-in account's own scope
// is tracked.
func (t *TopN) AddMany(entries []Entry) {
	if !t.sess.Owner() {
		return
	}
	saveSize := t.sess.Ranking.SaveSize

	for _, e := range entries {
		if e.Score == 0 || e.Score < t.sess.Ranking.MinViewThreshold {
			continue
		}
		// once a compaction filled the list, anything under its tail cannot rank
		if t.full && e.Score < t.minScore {
			continue
		}
		t.entries = append(t.entries, e)

		if len(t.entries) > 2*saveSize {
			t.compact()
		}
	}
}

func (t *TopN) compact() {
	if len(t.entries) == 0 {
		t.minScore = 0
		t.full = false
		return
	}

	seen := make(map[string]struct{}, len(t.entries))
	deduped := t.entries[:0]
	for _, e := range t.entries {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		deduped = append(deduped, e)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Score > deduped[j].Score
	})

	saveSize := t.sess.Ranking.SaveSize
	if len(deduped) > saveSize {
		deduped = deduped[:saveSize]
	}
	t.entries = deduped
	t.minScore = deduped[len(deduped)-1].Score
	t.full = len(deduped) >= saveSize
	t.sess.Metrics.SetTopMinScore(t.sess.Scope, t.minScore)
}

// Ranked compacts and returns up to n entries in rank order.
func (t *TopN) Ranked(n int) []Entry {
	if !t.inited {
		t.sess.Log.Error("top list read before init")
		return []Entry{}
	}
	t.compact()
	if n > len(t.entries) || n < 0 {
		n = len(t.entries)
	}
	out := make([]Entry, n)
	copy(out, t.entries[:n])
	return out
}

// IDs compacts and returns every kept identifier in rank order.
func (t *TopN) IDs() []string {
	if !t.inited || len(t.entries) == 0 {
		return []string{}
	}
	t.compact()
	ids := make([]string, len(t.entries))
	for i, e := range t.entries {
		ids[i] = e.ID
	}
	return ids
}

// Len is the current length, which may exceed SaveSize between compactions.
func (t *TopN) Len() int { return len(t.entries) }

// MinScore is the tail score after the last compaction.
func (t *TopN) MinScore() int64 { return t.minScore }

// Save compacts and persists the list with its timestamp. Other scopes are
// only saved for elevated accounts, and nothing is saved after cancellation.
func (t *TopN) Save() bool {
	if !t.inited {
		t.sess.Log.Error("top list saved before init")
		return false
	}
	if !t.sess.Owner() && !t.sess.Account.Elevated {
		t.sess.Log.Debug("not saving top list of another account")
		return false
	}
	if t.sess.Cancelled() {
		t.sess.Log.Debug("not saving top list because the fetch was cancelled")
		return false
	}

	t.compact()
	data, err := EncodeRankedList(t.entries)
	if err != nil {
		t.sess.Log.WithError(err).Error("failed to encode top list")
		return false
	}
	ok := t.sess.Store.Put(t.sess.Scope, store.KeyTopViews, data)
	return t.sess.Store.Put(t.sess.Scope, store.KeyLastModTopViews, t.sess.timestamp()) && ok
}
