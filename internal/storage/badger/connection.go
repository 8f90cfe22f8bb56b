// Package badger provides the "mongo"-mode persistence backend (see
// DESIGN.md's "Why badgerhold instead of a MongoDB driver"): it stores
// Source, UnifiedPriceRecord and RunLog documents in a badgerhold store,
// offering the same upsert-by-entryUrl/bulk-insert/run-history semantics
// original_source's app/db/sources_repo.py, prices_repo.py and
// runs_repo.py describe, adapted from
// _examples/ternarybob-quaero/internal/storage/badger/connection.go's
// BadgerDB wrapper.
package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// DB manages the badgerhold database connection backing the "mongo" mode
// Source/Price/Run stores.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewDB opens (creating if absent) the badgerhold database at path.
func NewDB(logger arbor.ILogger, path string) (*DB, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("badger: create database directory: %w", err)
		}
	}

	logger.Debug().Str("path", path).Msg("badger: opening database connection")

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("badger: open database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("badger: database initialized")
	return &DB{store: store, logger: logger}, nil
}

// Store returns the underlying badgerhold store.
func (d *DB) Store() *badgerhold.Store { return d.store }

// Close closes the database connection.
func (d *DB) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
