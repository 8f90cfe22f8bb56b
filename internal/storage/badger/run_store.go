package badger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/mandi-agent/internal/models"
)

// RunStore persists RunLog documents, grounded on
// original_source/scraper/app/db/runs_repo.py.
type RunStore struct {
	db     *DB
	logger arbor.ILogger
}

func NewRunStore(db *DB, logger arbor.ILogger) *RunStore {
	return &RunStore{db: db, logger: logger}
}

// SaveRunLog inserts a completed run log, matching runs_repo.py's
// insert_run.
func (s *RunStore) SaveRunLog(ctx context.Context, log models.RunLog) error {
	if err := s.db.Store().Insert(uuid.New().String(), log); err != nil {
		return fmt.Errorf("badger: insert run log: %w", err)
	}
	return nil
}

// CountRecentFailures counts failed runs among the most recent last_n
// runs for sourceID, matching runs_repo.py's count_recent_failures. The
// caller (internal/health.Update, via runner.Output) feeds this straight
// into the BROKEN threshold check.
func (s *RunStore) CountRecentFailures(ctx context.Context, sourceID string, lastN int) (int, error) {
	var runs []models.RunLog
	query := badgerhold.Where("SourceID").Eq(sourceID).SortBy("StartTime").Reverse().Limit(lastN)
	if err := s.db.Store().Find(&runs, query); err != nil {
		return 0, fmt.Errorf("badger: count recent failures: %w", err)
	}
	failures := 0
	for _, r := range runs {
		if !r.Success {
			failures++
		}
	}
	return failures, nil
}

// FindLatestSuccessful returns the most recent successful run for
// sourceID, matching runs_repo.py's find_latest_successful.
func (s *RunStore) FindLatestSuccessful(ctx context.Context, sourceID string) (*models.RunLog, error) {
	var runs []models.RunLog
	query := badgerhold.Where("SourceID").Eq(sourceID).And("Success").Eq(true).SortBy("StartTime").Reverse().Limit(1)
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, fmt.Errorf("badger: find latest successful run: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
