// Package runctx carries the mutable per-run state (visited URLs, errors,
// record counts, timing) through the discovery and extraction pipeline,
// grounded on original_source's core/context.py RunContext.
package runctx

import (
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/common"
	"github.com/ternarybob/mandi-agent/internal/models"
)

// RunContext is passed by pointer through every stage of a single source's
// discovery/extraction run so errors and visit history accumulate in one
// place regardless of which stage observes them.
type RunContext struct {
	Config    *common.Config
	Logger    arbor.ILogger
	SourceID  string
	SourceURL string
	StartTime time.Time

	VisitedURLs     []string
	Errors          []models.RunError
	RecordsExtracted int
	RecordsSaved     int
}

// New creates a RunContext for a single source run, stamping StartTime now.
func New(cfg *common.Config, logger arbor.ILogger, sourceID, sourceURL string) *RunContext {
	return &RunContext{
		Config:    cfg,
		Logger:    logger,
		SourceID:  sourceID,
		SourceURL: sourceURL,
		StartTime: time.Now(),
	}
}

// ElapsedSeconds returns the number of seconds since the run started.
func (c *RunContext) ElapsedSeconds() float64 {
	return time.Since(c.StartTime).Seconds()
}

// AddError records an error encountered during the run, logging it at
// error level if fatal or warn level otherwise.
func (c *RunContext) AddError(url, errMsg string, fatal bool) {
	c.Errors = append(c.Errors, models.RunError{URL: url, Error: errMsg, Fatal: fatal})
	if c.Logger == nil {
		return
	}
	if fatal {
		c.Logger.Error().Str("url", url).Msg(errMsg)
	} else {
		c.Logger.Warn().Str("url", url).Msg(errMsg)
	}
}

// MarkVisited records a URL as visited during this run.
func (c *RunContext) MarkVisited(url string) {
	c.VisitedURLs = append(c.VisitedURLs, url)
}

// HasFatalError reports whether any recorded error is fatal.
func (c *RunContext) HasFatalError() bool {
	for _, e := range c.Errors {
		if e.Fatal {
			return true
		}
	}
	return false
}

// ToRunLog serializes the context's accumulated state into a RunLog
// suitable for persistence.
func (c *RunContext) ToRunLog() models.RunLog {
	fatal := c.HasFatalError()
	return models.RunLog{
		SourceID:    c.SourceID,
		SourceURL:   c.SourceURL,
		StartTime:   c.StartTime,
		ElapsedSec:  c.ElapsedSeconds(),
		VisitedURLs: c.VisitedURLs,
		Extracted:   c.RecordsExtracted,
		Saved:       c.RecordsSaved,
		Errors:      c.Errors,
		Fatal:       fatal,
		Success:     !fatal,
	}
}
