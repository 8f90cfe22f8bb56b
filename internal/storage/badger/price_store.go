package badger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/mandi-agent/internal/models"
)

// PriceStore persists UnifiedPriceRecord documents, grounded on
// original_source/scraper/app/db/prices_repo.py's bulk_insert (the
// derived crops/states/mandis entity upserts it also performs are a
// frontend-API concern out of this module's scope — see DESIGN.md).
type PriceStore struct {
	db     *DB
	logger arbor.ILogger
}

func NewPriceStore(db *DB, logger arbor.ILogger) *PriceStore {
	return &PriceStore{db: db, logger: logger}
}

// SavePrices inserts records, skipping ones that already exist by
// (cropName, mandiName, date) — prices_repo.py's duplicate-skip rule,
// implemented here as a pre-check since badgerhold has no unique-index
// insert_many equivalent.
func (s *PriceStore) SavePrices(ctx context.Context, records []models.UnifiedPriceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	inserted := 0
	for _, rec := range records {
		exists, err := s.exists(rec)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}
		if err := s.db.Store().Insert(uuid.New().String(), rec); err != nil {
			return inserted, fmt.Errorf("badger: insert price record: %w", err)
		}
		inserted++
	}

	s.logger.Info().Int("inserted", inserted).Int("provided", len(records)).Msg("badger: saved price records")
	return inserted, nil
}

func (s *PriceStore) exists(rec models.UnifiedPriceRecord) (bool, error) {
	var matches []models.UnifiedPriceRecord
	query := badgerhold.Where("CropName").Eq(rec.CropName).
		And("MandiName").Eq(rec.MandiName).
		And("Date").Eq(rec.Date)
	if err := s.db.Store().Find(&matches, query); err != nil {
		return false, fmt.Errorf("badger: check price duplicate: %w", err)
	}
	return len(matches) > 0, nil
}
