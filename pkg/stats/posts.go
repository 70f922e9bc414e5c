package stats

import (
	"encoding/json"

	"imgurstats/pkg/store"
)

// PostRecord is the flat per-post row kept in the saved post list. Field
// order is the export column order.
type PostRecord struct {
	Hash          string `json:"hash"`
	Title         string `json:"title"`
	Points        int64  `json:"points"`
	Ups           int64  `json:"ups"`
	Downs         int64  `json:"downs"`
	Views         int64  `json:"views"`
	CommentCount  int64  `json:"comment_count"`
	FavoriteCount int64  `json:"favorite_count"`
	Viral         bool   `json:"viral"`
	Timestamp     string `json:"timestamp"`
}

// LoadPosts reads the saved post list of scope and its last-modified stamp.
// A missing or unreadable list is empty.
func LoadPosts(st *store.Store, scope string) ([]PostRecord, string, error) {
	raw := st.Get(scope, store.KeyPostsData, "")
	stamp := st.Get(scope, store.KeyLastModPosts, "")
	if raw == "" {
		return []PostRecord{}, stamp, nil
	}
	var posts []PostRecord
	if err := json.Unmarshal([]byte(raw), &posts); err != nil {
		return []PostRecord{}, stamp, err
	}
	return posts, stamp, nil
}

// MergePosts reconciles fetched records into the saved list by hash. A saved
// record whose content changed is replaced in place, an unchanged one is
// kept, and records not saved yet are put in front in fetched order so the
// list stays newest first.
func MergePosts(saved, fetched []PostRecord) (merged []PostRecord, updated, added int) {
	index := make(map[string]int, len(saved))
	for i, p := range saved {
		if _, dup := index[p.Hash]; !dup {
			index[p.Hash] = i
		}
	}

	out := make([]PostRecord, len(saved))
	copy(out, saved)

	var fresh []PostRecord
	seen := make(map[string]struct{}, len(fetched))
	for _, p := range fetched {
		if _, dup := seen[p.Hash]; dup {
			continue
		}
		seen[p.Hash] = struct{}{}

		if i, ok := index[p.Hash]; ok {
			if out[i] != p {
				out[i] = p
				updated++
			}
			continue
		}
		fresh = append(fresh, p)
	}

	merged = make([]PostRecord, 0, len(fresh)+len(out))
	merged = append(merged, fresh...)
	merged = append(merged, out...)
	return merged, updated, len(fresh)
}
