// Package discovery orchestrates the full discovery pipeline for a single
// source: seed the priority queue with the entry URL, navigate page by
// page with the browser driver, run the network sniffer/table detector/
// file detector on each page, feed discovered links back into the queue,
// and aggregate the results. Grounded on original_source's
// discovery_engine.py.
package discovery

import (
	"context"
	"time"

	"github.com/ternarybob/mandi-agent/internal/browserdrv"
	"github.com/ternarybob/mandi-agent/internal/filedetect"
	"github.com/ternarybob/mandi-agent/internal/models"
	"github.com/ternarybob/mandi-agent/internal/pqueue"
	"github.com/ternarybob/mandi-agent/internal/runctx"
	"github.com/ternarybob/mandi-agent/internal/scorer"
	"github.com/ternarybob/mandi-agent/internal/sniffer"
	"github.com/ternarybob/mandi-agent/internal/tabledetect"
	"github.com/ternarybob/mandi-agent/internal/urlutil"
)

// maxCrawlDepth bounds how many link-hops the queue will follow from the
// entry URL, per original_source's MAX_CRAWL_DEPTH.
const maxCrawlDepth = 3

// Engine runs the discovery pipeline using an injected browser driver, so
// callers/tests can substitute a fake driver without a real Chrome binary.
type Engine struct {
	driver Navigator
}

// Navigator is the subset of *browserdrv.Driver the engine depends on.
type Navigator interface {
	Navigate(ctx context.Context, url string) (*browserdrv.NavResult, error)
	AttachSniffer(s browserdrv.ResponseSniffer)
	DetachSniffer()
}

// New creates a discovery Engine backed by the given Navigator (typically
// a *browserdrv.Driver).
func New(driver Navigator) *Engine {
	return &Engine{driver: driver}
}

// Run executes the discovery pipeline for a single source entry URL,
// visiting at most maxPages pages, and returns the aggregated result.
// Per-page navigation errors are recorded on rc and in the run's visited
// history; they do not abort the run. A queue/driver-level failure is
// recorded as fatal on rc.
func (e *Engine) Run(ctx context.Context, rc *runctx.RunContext, entryURL string, maxPages int, requestDelay time.Duration) models.DiscoveryResult {
	baseURL := urlutil.ExtractBaseURL(entryURL)
	result := models.DiscoveryResult{EntryURL: entryURL}

	queue := pqueue.New(maxCrawlDepth)
	snf := sniffer.New()
	e.driver.AttachSniffer(snf)
	defer e.driver.DetachSniffer()

	entryLevel := scorer.ScoreURL(entryURL)
	queue.Push(entryURL, entryLevel, 0, "")

	pagesProcessed := 0

	for pagesProcessed < maxPages {
		if queue.Len() == 0 {
			break
		}
		item, ok, err := queue.Pop(ctx)
		if err != nil {
			rc.AddError(entryURL, "discovery queue error: "+err.Error(), true)
			break
		}
		if !ok {
			break
		}

		rc.MarkVisited(item.URL)

		navResult, navErr := e.driver.Navigate(ctx, item.URL)
		if navErr != nil {
			rc.AddError(item.URL, navErr.Error(), false)
			continue
		}
		if navResult.Error != "" {
			rc.AddError(item.URL, navResult.Error, false)
			continue
		}

		tables, _ := tabledetect.DetectTables(navResult.HTMLSnippet, navResult.URL)
		result.TableCandidates = append(result.TableCandidates, tables...)

		files, _ := filedetect.DetectFiles(navResult.HTMLSnippet, baseURL)
		result.FileCandidates = append(result.FileCandidates, files...)

		result.VisitedPages = append(result.VisitedPages, models.VisitedPage{
			URL:   navResult.URL,
			Level: item.Level,
			Depth: item.Depth,
			Title: navResult.Title,
		})
		pagesProcessed++

		for _, link := range navResult.Links {
			linkLevel := scorer.ScoreURL(link.URL)
			queue.Push(link.URL, linkLevel, item.Depth+1, item.URL)
		}

		if requestDelay > 0 {
			select {
			case <-time.After(requestDelay):
			case <-ctx.Done():
				rc.AddError(entryURL, ctx.Err().Error(), true)
				pagesProcessed = maxPages
			}
		}
	}

	result.APICandidates = snf.Candidates()
	result.Stats = queue.Stats()
	result.SortByScoreDesc()

	return result
}
