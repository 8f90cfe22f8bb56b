package ioadapters

import (
	"context"
	"fmt"

	"github.com/ternarybob/mandi-agent/internal/models"
)

// sourceStore is the subset of *badger.SourceStore the DB-backed loaders
// depend on, narrowed so tests can fake it without a real badgerhold
// instance.
type sourceStore interface {
	Load(ctx context.Context) ([]models.Source, error)
	LoadAll(ctx context.Context) ([]models.Source, error)
	FindByURL(ctx context.Context, url string) (*models.Source, error)
}

// DBSourceLoader loads active (non-BROKEN) sources from the badgerhold
// store, matching db_input.py's DbInput.load_sources.
type DBSourceLoader struct {
	store sourceStore
}

// NewDBSourceLoader returns a loader backed by store.
func NewDBSourceLoader(store sourceStore) *DBSourceLoader {
	return &DBSourceLoader{store: store}
}

// Load returns every active source, matching DbInput.load_sources.
func (l *DBSourceLoader) Load(ctx context.Context) ([]models.Source, error) {
	sources, err := l.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ioadapters: load active sources: %w", err)
	}
	return sources, nil
}

// LoadAll returns every source including BROKEN ones, matching
// DbInput.load_all_sources.
func (l *DBSourceLoader) LoadAll(ctx context.Context) ([]models.Source, error) {
	sources, err := l.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("ioadapters: load all sources: %w", err)
	}
	return sources, nil
}
