package stats

import (
	"encoding/json"

	"imgurstats/pkg/store"
)

// ScoreLedger maps every seen identifier of one scope to its latest score and
// keeps the scope's running sum in step with it.
type ScoreLedger struct {
	sess   *Session
	scores map[string]int64
	inited bool
}

// NewScoreLedger creates a ledger for the session scope.
func NewScoreLedger(sess *Session) *ScoreLedger {
	return &ScoreLedger{sess: sess, scores: make(map[string]int64)}
}

// Init loads the saved score map and the running sum. A malformed saved map
// is logged and replaced by an empty one.
func (l *ScoreLedger) Init() {
	if l.inited {
		return
	}
	l.scores = make(map[string]int64)

	raw := l.sess.Store.Get(l.sess.Scope, store.KeyImgViews, "")
	if raw != "" {
		entries, err := DecodeScoreObject([]byte(raw))
		if err != nil {
			l.sess.Log.WithError(err).Warn("saved image views are unreadable, starting empty")
		} else {
			for _, e := range entries {
				l.scores[e.ID] = e.Score
			}
		}
	}
	l.sess.Sums.Init(l.sess.Scope)
	l.inited = true
}

// AddMany applies entries and returns how many changed the ledger.
func (l *ScoreLedger) AddMany(entries []Entry) int {
	scope := l.sess.Scope
	applied := 0

	for _, e := range entries {
		if e.Score == 0 {
			continue
		}
		if current, ok := l.scores[e.ID]; ok {
			if current == e.Score {
				continue
			}
			if e.Score < current {
				l.sess.Log.DebugWithFields("views decreased", map[string]interface{}{
					"id":    e.ID,
					"delta": e.Score - current,
				})
			}
			l.sess.Sums.SubViews(scope, current)
		} else if e.Score < l.sess.Ranking.MinViewThreshold {
			continue
		}

		l.scores[e.ID] = e.Score
		l.sess.Sums.AddViews(scope, e.Score)
		applied++
	}
	return applied
}

// Score returns the stored score of id.
func (l *ScoreLedger) Score(id string) (int64, bool) {
	s, ok := l.scores[id]
	return s, ok
}

// Len is the number of tracked identifiers.
func (l *ScoreLedger) Len() int {
	return len(l.scores)
}

// Save persists the map, its timestamp and the running sum, unless the
// session was cancelled. The in-memory map is released either way.
func (l *ScoreLedger) Save() bool {
	defer func() {
		l.scores = make(map[string]int64)
		l.inited = false
	}()

	if l.sess.Cancelled() {
		l.sess.Log.Debug("not saving image views because the fetch was cancelled")
		return false
	}

	data, err := json.Marshal(l.scores)
	if err != nil {
		l.sess.Log.WithError(err).Error("failed to encode image views")
		return false
	}

	scope := l.sess.Scope
	ok := l.sess.Store.Put(scope, store.KeyImgViews, string(data))
	ok = l.sess.Store.Put(scope, store.KeyLastModImages, l.sess.timestamp()) && ok
	ok = l.sess.Sums.Save(scope) && ok
	return ok
}
