// Package store persists per-account string blobs under (scope, key) names.
//
// Store never returns errors: a failed backend call is logged and the caller
// gets the default value (Get) or false (Put, Delete). Keys are independent;
// a failed Put loses only that key.
package store

import (
	"regexp"
	"strings"

	"imgurstats/pkg/config"
	"imgurstats/pkg/logger"
	"imgurstats/pkg/metrics"
)

// Key names under which per-scope data is stored.
const (
	KeyDataVersion       = "DATAVERSION"
	KeyPostsData         = "POSTSDATA"
	KeyLastModPosts      = "LASTMODPOSTS"
	KeySummaryPosts      = "SUMMARYPOSTS"
	KeyTopViews          = "TOPVIEWS"
	KeyLastModTopViews   = "LASTMODTOPVIEWS"
	KeyImgViews          = "IMGVIEWS"
	KeyLastModImages     = "LASTMODIMAGES"
	KeyHashTypeBin       = "HASHTYPEBIN"
	KeyViewsSum          = "VIEWSSUM"
	KeyPriorTopViews     = "PRIORTOPVIEWS"
	KeyPriorTopViewsMod  = "PRIORTOPVIEWSLASTMOD"
	KeyPriorSummaryPosts = "PRIORSUMMARYPOSTS"
	SchemaVersion        = "v2.1"
	schemaScope          = KeyDataVersion
	keySuffix            = ".text"
)

// imageDataKeys are removed by DeleteImageData. VIEWSSUM goes with them so
// that a later full fetch does not count every image twice.
var imageDataKeys = []string{KeyTopViews, KeyImgViews, KeyHashTypeBin, KeyLastModImages, KeyViewsSum}

var postsDataKey = regexp.MustCompile(`^([\w]+)\.` + KeyPostsData + `\.text$`)

// Store wraps a Backend with the never-fail contract.
type Store struct {
	backend Backend
	log     logger.Logger
	metrics *metrics.Metrics
}

// New wraps an open backend.
func New(backend Backend, log logger.Logger, m *metrics.Metrics) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{backend: backend, log: log.WithField("component", "store"), metrics: m}
}

// Open opens the backend configured in cfg and wraps it.
func Open(cfg config.StorageConfig, log logger.Logger, m *metrics.Metrics) (*Store, error) {
	backend, err := OpenBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	return New(backend, log, m), nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// FullKey builds the stored name of key under scope.
func FullKey(scope, key string) string {
	return scope + "." + key + keySuffix
}

func (s *Store) fail(op, scope, key string, err error) {
	s.metrics.StoreError(op)
	s.log.WithError(err).WarnWithFields("store operation failed", map[string]interface{}{
		"op":    op,
		"scope": scope,
		"key":   key,
	})
}

// Put stores value and reports whether it was written.
func (s *Store) Put(scope, key, value string) bool {
	if err := s.backend.Put(FullKey(scope, key), []byte(value)); err != nil {
		s.fail("put", scope, key, err)
		return false
	}
	return true
}

// Get returns the stored value, or def when it is absent or the backend fails.
func (s *Store) Get(scope, key, def string) string {
	value, found, err := s.backend.Get(FullKey(scope, key))
	if err != nil {
		s.fail("get", scope, key, err)
		return def
	}
	if !found {
		return def
	}
	return string(value)
}

// Delete removes key and reports whether the backend accepted it.
func (s *Store) Delete(scope, key string) bool {
	if err := s.backend.Delete(FullKey(scope, key)); err != nil {
		s.fail("delete", scope, key, err)
		return false
	}
	return true
}

// Copy duplicates oldKey into newKey. Absent or empty sources leave newKey alone.
func (s *Store) Copy(scope, oldKey, newKey string) {
	s.log.DebugWithFields("backing up key", map[string]interface{}{
		"scope": scope,
		"from":  oldKey,
		"to":    newKey,
	})
	if value := s.Get(scope, oldKey, ""); value != "" {
		s.Put(scope, newKey, value)
	}
}

// ListScopes returns every scope that has saved post data.
func (s *Store) ListScopes() []string {
	keys, err := s.backend.Keys("")
	if err != nil {
		s.fail("keys", "", "", err)
		return []string{}
	}

	scopes := []string{}
	for _, k := range keys {
		if m := postsDataKey.FindStringSubmatch(k); m != nil {
			scopes = append(scopes, m[1])
		}
	}
	return scopes
}

// DeleteScope removes every key of scope, or every key at all when scope is
// empty. It returns how many keys were removed.
func (s *Store) DeleteScope(scope string) int {
	prefix := ""
	if scope != "" {
		prefix = scope + "."
	}
	keys, err := s.backend.Keys(prefix)
	if err != nil {
		s.fail("keys", scope, "", err)
		return 0
	}

	removed := 0
	for _, k := range keys {
		if err := s.backend.Delete(k); err != nil {
			s.fail("delete", scope, k, err)
			continue
		}
		removed++
	}
	return removed
}

// DeleteImageData removes the per-image data of scope and keeps the post list.
func (s *Store) DeleteImageData(scope string) {
	for _, key := range imageDataKeys {
		s.Delete(scope, key)
	}
}

// EnsureSchemaVersion wipes everything when a different schema version was
// saved, then records version. It reports whether a wipe happened.
func (s *Store) EnsureSchemaVersion(version string) bool {
	saved := s.Get(schemaScope, KeyDataVersion, "")
	if saved == version {
		return false
	}

	wiped := false
	if saved != "" {
		n := s.DeleteScope("")
		s.log.WarnWithFields("stored data is from another version and was removed", map[string]interface{}{
			"saved_version": saved,
			"version":       version,
			"keys_removed":  n,
		})
		wiped = true
	}
	s.Put(schemaScope, KeyDataVersion, version)
	return wiped
}

// HasData reports whether scope has any saved post or image data.
func (s *Store) HasData(scope string) bool {
	keys, err := s.backend.Keys(scope + ".")
	if err != nil {
		s.fail("keys", scope, "", err)
		return false
	}
	for _, k := range keys {
		if strings.HasSuffix(k, "."+KeyPostsData+keySuffix) || strings.HasSuffix(k, "."+KeyImgViews+keySuffix) {
			return true
		}
	}
	return false
}

// OpenInMemory returns a Store over an in-memory BadgerDB.
func OpenInMemory(log logger.Logger) (*Store, error) {
	backend, err := OpenBadgerInMemory()
	if err != nil {
		return nil, err
	}
	return New(backend, log, nil), nil
}
