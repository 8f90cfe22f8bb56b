// Package health implements the Source health state machine of spec.md
// §4.16 (OK/STALE/BROKEN), grounded on
// original_source/scraper/app/monitoring/health.py's update_health.
package health

import (
	"fmt"
	"time"

	"github.com/ternarybob/mandi-agent/internal/models"
)

// brokenThreshold/RecentRunWindow mirror health.py's "3 failures in the
// last 5 runs" rule, applied as a sliding window over persisted RunLogs
// rather than an in-memory counter so that an intervening success does
// not silently erase older failures within the window. RecentRunWindow
// is exported so callers know how many recent runs to query before
// calling Update.
const (
	brokenThreshold = 3
	RecentRunWindow = 5
)

// Update applies the result of one scrape/discovery attempt to source's
// health fields and returns the resulting status. success with
// recordsSaved > 0 always yields OK. Otherwise the caller supplies
// recentFailures — the failure count among the last RecentRunWindow
// persisted runs for this source, including the one just recorded —
// and hasPriorSuccess — whether any run before this one ever succeeded;
// the source falls to BROKEN when recentFailures >= brokenThreshold or
// it has never once succeeded, otherwise STALE.
func Update(source *models.Source, success bool, recordsSaved int, recentFailures int, hasPriorSuccess bool, now time.Time) models.HealthStatus {
	source.HealthUpdatedAt = now

	if success && recordsSaved > 0 {
		source.LastSuccessAt = &now
		source.LastError = ""
		source.HealthStatus = models.HealthOK
		return models.HealthOK
	}

	switch {
	case recentFailures >= brokenThreshold:
		source.LastError = fmt.Sprintf("%d consecutive failures in last %d runs", recentFailures, RecentRunWindow)
		source.HealthStatus = models.HealthBroken
	case hasPriorSuccess:
		source.LastError = "Last scrape failed but previous successes exist"
		source.HealthStatus = models.HealthStale
	default:
		source.LastError = "No successful scrapes recorded"
		source.HealthStatus = models.HealthBroken
	}

	return source.HealthStatus
}
