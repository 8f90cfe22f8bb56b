package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/mandi-agent/internal/models"
)

// SourceStore persists Source documents, grounded on
// original_source/scraper/app/db/sources_repo.py's find_active/upsert.
type SourceStore struct {
	db     *DB
	logger arbor.ILogger
}

func NewSourceStore(db *DB, logger arbor.ILogger) *SourceStore {
	return &SourceStore{db: db, logger: logger}
}

// Load returns every source whose HealthStatus is not BROKEN, matching
// sources_repo.py's find_active.
func (s *SourceStore) Load(ctx context.Context) ([]models.Source, error) {
	var sources []models.Source
	query := badgerhold.Where("HealthStatus").Ne(models.HealthBroken)
	if err := s.db.Store().Find(&sources, query); err != nil {
		return nil, fmt.Errorf("badger: find active sources: %w", err)
	}
	return sources, nil
}

// LoadAll returns every source including BROKEN ones, matching
// DbInput.load_all_sources.
func (s *SourceStore) LoadAll(ctx context.Context) ([]models.Source, error) {
	var sources []models.Source
	if err := s.db.Store().Find(&sources, nil); err != nil {
		return nil, fmt.Errorf("badger: find all sources: %w", err)
	}
	return sources, nil
}

// FindByURL looks a source up by its entry URL, matching
// sources_repo.py's find_by_url (baseUrl fallback omitted: discovery
// always keys a Source by its own entryUrl in this module).
func (s *SourceStore) FindByURL(ctx context.Context, url string) (*models.Source, error) {
	var matches []models.Source
	if err := s.db.Store().Find(&matches, badgerhold.Where("EntryURL").Eq(url)); err != nil {
		return nil, fmt.Errorf("badger: find source by url: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// SaveSourceConfig inserts or updates source, keyed by EntryURL — an
// existing document's ID/CreatedAt are preserved across the upsert,
// matching sources_repo.py's upsert (`$setOnInsert: createdAt`).
func (s *SourceStore) SaveSourceConfig(ctx context.Context, source *models.Source) error {
	now := time.Now()

	existing, err := s.FindByURL(ctx, source.EntryURL)
	if err != nil {
		return err
	}
	if existing != nil {
		source.ID = existing.ID
		source.CreatedAt = existing.CreatedAt
	} else {
		if source.ID == "" {
			source.ID = uuid.New().String()
		}
		source.CreatedAt = now
	}
	source.UpdatedAt = now

	if err := s.db.Store().Upsert(source.ID, source); err != nil {
		return fmt.Errorf("badger: upsert source: %w", err)
	}
	return nil
}
