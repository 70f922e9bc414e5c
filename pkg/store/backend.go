package store

import (
	"fmt"
	"path/filepath"

	"imgurstats/pkg/config"
	"imgurstats/pkg/logger"
)

// Backend is a flat string key-value store. Unlike Store, every call reports
// its failure so that Store can log and degrade.
type Backend interface {
	Put(key string, value []byte) error
	// Get returns found=false with a nil error when the key is absent.
	Get(key string) (value []byte, found bool, err error)
	Delete(key string) error
	// Keys lists keys starting with prefix; an empty prefix lists everything.
	Keys(prefix string) ([]string, error)
	Close() error
}

// OpenBackend opens the backend selected by the storage section of the config.
func OpenBackend(cfg config.StorageConfig, log logger.Logger) (Backend, error) {
	switch cfg.Driver {
	case "", "badger":
		return OpenBadger(BadgerConfig{
			Path:       filepath.Join(cfg.Path, "badger"),
			SyncWrites: cfg.SyncWrites,
			Logger:     log,
		})
	case "sqlite":
		return OpenSQLite(filepath.Join(cfg.Path, "imgurstats.db"))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
