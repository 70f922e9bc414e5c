package stats

import (
	"encoding/json"
	"strings"

	"imgurstats/pkg/store"
)

// DefaultExt is used for hashes whose file type was never recorded.
const DefaultExt = "gif"

var extBins = []string{"jpg", "png", "gif", "mp4"}

// ExtTable remembers the file type of each hash so top-list links can point
// at the right file. Each type is one comma-delimited string of hashes, which
// keeps the stored blob small for accounts with many images.
type ExtTable struct {
	sess   *Session
	bins   map[string]string
	inited bool
}

// NewExtTable creates a table for the session scope.
func NewExtTable(sess *Session) *ExtTable {
	return &ExtTable{sess: sess, bins: emptyBins()}
}

func emptyBins() map[string]string {
	bins := make(map[string]string, len(extBins))
	for _, ext := range extBins {
		bins[ext] = ","
	}
	return bins
}

// Init loads the saved bins. Unknown bins in the saved blob are dropped.
func (t *ExtTable) Init() {
	if t.inited {
		return
	}
	t.bins = emptyBins()
	if raw := t.sess.Store.Get(t.sess.Scope, store.KeyHashTypeBin, ""); raw != "" {
		var saved map[string]string
		if err := json.Unmarshal([]byte(raw), &saved); err != nil {
			t.sess.Log.WithError(err).Warn("saved file types are unreadable, starting empty")
		} else {
			for ext, hashes := range saved {
				if _, ok := t.bins[ext]; ok && strings.HasPrefix(hashes, ",") {
					t.bins[ext] = hashes
				}
			}
		}
	}
	t.inited = true
}

// NormalizeExt turns ".jpg" or ".png?1" into a bin name.
func NormalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if strings.HasPrefix(ext, ".") {
		ext = ext[1:]
		if len(ext) > 3 {
			ext = ext[:3]
		}
	}
	if ext == "jpe" || ext == "jpeg" {
		return "jpg"
	}
	return ext
}

// Add records the file type of hash. Unknown types are logged and ignored.
func (t *ExtTable) Add(hash, ext string) {
	if hash == "" || ext == "" {
		t.sess.Log.Debug("file type without hash or extension")
		return
	}
	ext = NormalizeExt(ext)
	bin, ok := t.bins[ext]
	if !ok {
		t.sess.Log.DebugWithFields("unknown file type", map[string]interface{}{"hash": hash, "ext": ext})
		return
	}
	if strings.Contains(bin, ","+hash+",") {
		return
	}
	t.bins[ext] = bin + hash + ","
}

// ExtFor returns the recorded type of hash, or DefaultExt.
func (t *ExtTable) ExtFor(hash string) string {
	needle := "," + hash + ","
	for _, ext := range extBins {
		if strings.Contains(t.bins[ext], needle) {
			return ext
		}
	}
	return DefaultExt
}

// Save writes the bins unless the session was cancelled.
func (t *ExtTable) Save() bool {
	if !t.inited {
		return false
	}
	if t.sess.Cancelled() {
		t.sess.Log.Debug("not saving file types because the fetch was cancelled")
		return false
	}
	data, err := json.Marshal(t.bins)
	if err != nil {
		t.sess.Log.WithError(err).Error("failed to encode file types")
		return false
	}
	return t.sess.Store.Put(t.sess.Scope, store.KeyHashTypeBin, string(data))
}

// ExtFromMime maps a post image mime type to a bin name.
func ExtFromMime(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "video/mp4":
		return "mp4"
	default:
		return DefaultExt
	}
}

// LinkExt is the extension used in a link to hash's file. Videos are linked
// through imgur's gifv page.
func LinkExt(ext string) string {
	if ext == "mp4" {
		return "gifv"
	}
	return ext
}
