package report

import (
	"imgurstats/pkg/stats"
	"imgurstats/pkg/store"
)

// Movement is how an entry moved since the prior top list.
type Movement string

const (
	MovementNew  Movement = "new"
	MovementUp   Movement = "up"
	MovementDown Movement = "down"
	MovementSame Movement = "same"
)

// RankedRow is one displayed top list row. PriorRank is 1-based and 0 for new
// entries.
type RankedRow struct {
	Rank      int
	ID        string
	Views     int64
	Ext       string
	Movement  Movement
	PriorRank int
}

// TopReport is the displayed top list of one scope.
type TopReport struct {
	Scope      string
	Rows       []RankedRow
	TotalViews string
	Images     int
	Updated    string
	PriorDate  string
}

// BuildTop ranks the saved top list of the session scope, cut to the
// account's display size, and compares it with the backed-up prior list.
func BuildTop(sess *stats.Session) (*TopReport, error) {
	st := sess.Store
	if st.Get(sess.Scope, store.KeyTopViews, "") == "" {
		return nil, ErrNoData
	}

	top := stats.NewTopN(sess)
	top.Init()
	ext := stats.NewExtTable(sess)
	ext.Init()

	prior := make(map[string]int)
	if raw := st.Get(sess.Scope, store.KeyPriorTopViews, ""); raw != "" {
		entries, err := stats.DecodeRankedList([]byte(raw))
		if err != nil {
			sess.Log.WithError(err).Warn("prior top list is unreadable, skipping rank movement")
		}
		for i, e := range entries {
			if _, seen := prior[e.ID]; !seen {
				prior[e.ID] = i
			}
		}
	}

	ranked := top.Ranked(sess.DisplaySize())
	rows := make([]RankedRow, 0, len(ranked))
	for i, e := range ranked {
		row := RankedRow{
			Rank:     i + 1,
			ID:       e.ID,
			Views:    e.Score,
			Ext:      stats.LinkExt(ext.ExtFor(e.ID)),
			Movement: MovementNew,
		}
		if old, ok := prior[e.ID]; ok {
			row.PriorRank = old + 1
			switch {
			case i == old:
				row.Movement = MovementSame
			case i > old:
				row.Movement = MovementDown
			default:
				row.Movement = MovementUp
			}
		}
		rows = append(rows, row)
	}

	images := 0
	if raw := st.Get(sess.Scope, store.KeyImgViews, ""); raw != "" {
		if entries, err := stats.DecodeScoreObject([]byte(raw)); err == nil {
			images = len(entries)
		}
	}

	return &TopReport{
		Scope:      sess.Scope,
		Rows:       rows,
		TotalViews: sess.Sums.DisplayString(sess.Scope),
		Images:     images,
		Updated:    st.Get(sess.Scope, store.KeyLastModTopViews, ""),
		PriorDate:  st.Get(sess.Scope, store.KeyPriorTopViewsMod, ""),
	}, nil
}
