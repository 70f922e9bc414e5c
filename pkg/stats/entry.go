package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout formats last-modified stamps and post dates.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// Entry is one (identifier, score) pair. Every upstream and stored shape is
// normalised to []Entry before it reaches a ledger or the top list.
type Entry struct {
	ID    string
	Score int64
}

// DecodeScoreObject decodes {"id": score, ...} keeping the key order of the
// document. Scores may be numbers or numeric strings; anything else counts as 0.
func DecodeScoreObject(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var entries []Entry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := keyTok.(string)

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		entries = append(entries, Entry{ID: key, Score: ScoreValue(value)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}

// DecodeRankedList decodes [{"id": score}, ...] into entries in array order.
func DecodeRankedList(data []byte) ([]Entry, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		pairs, err := DecodeScoreObject(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, pairs...)
	}
	return entries, nil
}

// EncodeRankedList writes entries as an array of single-key objects so rank
// order survives a round trip.
func EncodeRankedList(entries []Entry) (string, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(e.ID)
		if err != nil {
			return "", err
		}
		b.WriteByte('{')
		b.Write(key)
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(e.Score, 10))
		b.WriteByte('}')
	}
	b.WriteByte(']')
	return b.String(), nil
}

// ScoreValue converts a decoded JSON value to a score. Strings are read like
// parseInt: leading digits only.
func ScoreValue(v interface{}) int64 {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return int64(f)
		}
		return 0
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case string:
		return leadingInt(n)
	default:
		return 0
	}
}

func leadingInt(s string) int64 {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
