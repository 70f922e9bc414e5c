package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"imgurstats/pkg/stats"
	"imgurstats/pkg/store"
)

const filenameDateLayout = "2006-01-02_15.04.05"

// PostColumns is the header of the posts export.
var PostColumns = []string{"hash", "title", "points", "ups", "downs", "views", "comment_count", "favorite_count", "viral", "timestamp"}

// Export is a generated file.
type Export struct {
	Filename string
	Data     []byte
}

func newTSVWriter(buf *bytes.Buffer) *csv.Writer {
	w := csv.NewWriter(buf)
	w.Comma = '\t'
	w.UseCRLF = true
	return w
}

func filenameDate(stamp string, now time.Time) string {
	if t, err := time.ParseInLocation(stats.TimestampLayout, stamp, time.Local); err == nil {
		return t.Format(filenameDateLayout)
	}
	return now.Format(filenameDateLayout)
}

// ExportPosts writes the saved posts of scope as tab separated rows, newest
// post first.
func ExportPosts(st *store.Store, scope string, now time.Time) (*Export, error) {
	posts, stamp, err := stats.LoadPosts(st, scope)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNoData
	}

	sorted := make([]stats.PostRecord, len(posts))
	copy(sorted, posts)
	when := func(p stats.PostRecord) time.Time {
		t, err := time.ParseInLocation(stats.TimestampLayout, p.Timestamp, time.Local)
		if err != nil {
			return time.Time{}
		}
		return t
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return when(sorted[i]).After(when(sorted[j]))
	})

	var buf bytes.Buffer
	w := newTSVWriter(&buf)
	if err := w.Write(PostColumns); err != nil {
		return nil, err
	}
	for _, p := range sorted {
		row := []string{
			p.Hash,
			p.Title,
			strconv.FormatInt(p.Points, 10),
			strconv.FormatInt(p.Ups, 10),
			strconv.FormatInt(p.Downs, 10),
			strconv.FormatInt(p.Views, 10),
			strconv.FormatInt(p.CommentCount, 10),
			strconv.FormatInt(p.FavoriteCount, 10),
			strconv.FormatBool(p.Viral),
			p.Timestamp,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &Export{
		Filename: fmt.Sprintf("%s-POSTS-%s.csv", scope, filenameDate(stamp, now)),
		Data:     buf.Bytes(),
	}, nil
}

// ExportImages writes the saved view count of every image of scope.
func ExportImages(st *store.Store, scope string, now time.Time) (*Export, error) {
	raw := st.Get(scope, store.KeyImgViews, "")
	if raw == "" {
		return nil, ErrNoData
	}
	entries, err := stats.DecodeScoreObject([]byte(raw))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := newTSVWriter(&buf)
	if err := w.Write([]string{"Image", "Views"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := w.Write([]string{e.ID, strconv.FormatInt(e.Score, 10)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	stamp := st.Get(scope, store.KeyLastModImages, "")
	return &Export{
		Filename: fmt.Sprintf("%s-IMAGES-%s.csv", scope, filenameDate(stamp, now)),
		Data:     buf.Bytes(),
	}, nil
}
