// Package runner dispatches the four agent modes (scrape, discover,
// discover_and_scrape, single_url), wiring together discovery, the LM
// oracle, the three scrapers and the normalizer, grounded line-for-line
// on original_source/scraper/app/core/runner.py and
// app/scraping/scrape_engine.py.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/common"
	"github.com/ternarybob/mandi-agent/internal/discovery"
	"github.com/ternarybob/mandi-agent/internal/discoverymode"
	"github.com/ternarybob/mandi-agent/internal/health"
	"github.com/ternarybob/mandi-agent/internal/llm"
	"github.com/ternarybob/mandi-agent/internal/mappingmode"
	"github.com/ternarybob/mandi-agent/internal/models"
	"github.com/ternarybob/mandi-agent/internal/normalize"
	"github.com/ternarybob/mandi-agent/internal/runctx"
)

// mappingSampleLimit mirrors scrape_engine.py's sample_records[:5] slice
// handed to the AI mapper after a quick discovery scrape.
const mappingSampleLimit = 5

// SourceLoader yields the sources a run should process, per the
// configured InputMode — a CSV file, a badgerhold store, or (in
// single_url mode) a synthetic single-element list.
type SourceLoader interface {
	Load(ctx context.Context) ([]models.Source, error)
}

// APIScraper, HTMLScraper and FileScraper are the subsets of
// *apiscrape.Scraper, *htmlscrape.Scraper and *filescrape.Scraper the
// runner depends on, so tests can substitute fakes without real network
// calls or a real PDF/Excel tabulator.
type APIScraper interface {
	Scrape(ctx context.Context, rc *runctx.RunContext, cfg models.APIConfig, requestDelay time.Duration) ([]map[string]any, error)
}

type HTMLScraper interface {
	Scrape(ctx context.Context, rc *runctx.RunContext, pageURL, selector string, tableIndex int) ([]map[string]any, error)
}

type FileScraper interface {
	Scrape(ctx context.Context, rc *runctx.RunContext, fileURL, fileType string) ([]map[string]any, error)
}

// Output is the combined persistence surface _get_output_adapter
// returns in the Python original: price records, run logs, and updated
// source configs, regardless of whether the backing store is CSV/txt
// files or badgerhold.
type Output interface {
	SavePrices(ctx context.Context, records []models.UnifiedPriceRecord) (int, error)
	SaveRunLog(ctx context.Context, log models.RunLog) error
	SaveSourceConfig(ctx context.Context, source *models.Source) error

	// CountRecentFailures and FindLatestSuccessful back the health
	// model's sliding-window BROKEN/STALE rule (spec.md §4.16), queried
	// fresh on every health.Update call rather than tracked as an
	// in-memory counter on Source.
	CountRecentFailures(ctx context.Context, sourceID string, lastN int) (int, error)
	FindLatestSuccessful(ctx context.Context, sourceID string) (*models.RunLog, error)
}

// Runner wires an already-constructed discovery engine, LM oracle and
// the three content scrapers into the mode-dispatch control flow.
type Runner struct {
	cfg    *common.Config
	logger arbor.ILogger

	discoveryEngine *discovery.Engine
	oracle          llm.Oracle
	api             APIScraper
	html            HTMLScraper
	file            FileScraper

	loader SourceLoader
	output Output
}

// New constructs a Runner. oracle may be nil: discovery/mapping steps are
// skipped with a warning (matching a misconfigured-provider degrade,
// since llm.New already fails fast on missing API keys upstream).
func New(cfg *common.Config, logger arbor.ILogger, discoveryEngine *discovery.Engine, oracle llm.Oracle, api APIScraper, html HTMLScraper, file FileScraper, loader SourceLoader, output Output) *Runner {
	return &Runner{
		cfg:             cfg,
		logger:          logger,
		discoveryEngine: discoveryEngine,
		oracle:          oracle,
		api:             api,
		html:            html,
		file:            file,
		loader:          loader,
		output:          output,
	}
}

// Run dispatches to the mode named by cfg.Agent.Mode.
func (r *Runner) Run(ctx context.Context) error {
	mode := r.cfg.Agent.Mode
	r.logger.Info().Str("mode", mode).Msg("runner: dispatching mode")

	switch mode {
	case "scrape":
		return r.runScrapeMode(ctx)
	case "discover":
		return r.runDiscoverMode(ctx)
	case "discover_and_scrape":
		return r.runDiscoverAndScrapeMode(ctx)
	case "single_url":
		return r.runSingleURLMode(ctx)
	default:
		return fmt.Errorf("runner: unknown agent mode %q", mode)
	}
}

// runScrapeMode assumes every loaded source already has extractionType
// and schemaMapping configured (discovery already ran in a prior pass).
func (r *Runner) runScrapeMode(ctx context.Context) error {
	sources, err := r.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("runner: load sources: %w", err)
	}
	if len(sources) == 0 {
		r.logger.Warn().Msg("runner: no sources to scrape")
		return nil
	}

	for i := range sources {
		source := &sources[i]
		r.logger.Info().Int("index", i+1).Int("total", len(sources)).Str("url", source.EntryURL).Msg("runner: scraping source")

		rc := runctx.New(r.cfg, r.logger, source.ID, source.EntryURL)
		records, _ := r.scrapeSource(ctx, rc, source)
		r.saveRecordsAndFinish(ctx, rc, source, records)
	}
	return nil
}

// runDiscoverMode only crawls and saves discovered configs — it never
// scrapes live data, and (matching _run_discover_mode, which never calls
// _update_health) it never touches health either; only single_url mode's
// failed-discovery branch updates health before a scrape is possible.
func (r *Runner) runDiscoverMode(ctx context.Context) error {
	sources, err := r.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("runner: load sources: %w", err)
	}
	if len(sources) == 0 {
		r.logger.Warn().Msg("runner: no sources to discover")
		return nil
	}

	for i := range sources {
		source := &sources[i]
		r.logger.Info().Int("index", i+1).Int("total", len(sources)).Str("url", source.EntryURL).Msg("runner: discovering source")

		rc := runctx.New(r.cfg, r.logger, source.ID, source.EntryURL)
		cfg, err := r.discoverSource(ctx, rc, source.EntryURL)
		if err != nil {
			return err
		}
		if cfg != nil {
			source.ApplyExtractionConfig(*cfg)
			r.saveSourceConfig(ctx, source)
			r.runMappingForSource(ctx, rc, source)
		}

		if err := r.output.SaveRunLog(ctx, rc.ToRunLog()); err != nil {
			r.logger.Warn().Err(err).Msg("runner: save run log failed")
		}
	}
	return nil
}

// runDiscoverAndScrapeMode discovers only the sources missing an
// extraction config, then scrapes every source.
func (r *Runner) runDiscoverAndScrapeMode(ctx context.Context) error {
	sources, err := r.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("runner: load sources: %w", err)
	}
	if len(sources) == 0 {
		r.logger.Warn().Msg("runner: no sources to process")
		return nil
	}

	for i := range sources {
		source := &sources[i]
		r.logger.Info().Int("index", i+1).Int("total", len(sources)).Str("url", source.EntryURL).Msg("runner: processing source")

		rc := runctx.New(r.cfg, r.logger, source.ID, source.EntryURL)

		if !source.HasConfig() {
			r.logger.Info().Msg("runner: no extraction config — running discovery")
			cfg, err := r.discoverSource(ctx, rc, source.EntryURL)
			if err != nil {
				return err
			}
			if cfg == nil {
				r.logger.Warn().Str("url", source.EntryURL).Msg("runner: discovery failed — skipping scrape")
				if err := r.output.SaveRunLog(ctx, rc.ToRunLog()); err != nil {
					r.logger.Warn().Err(err).Msg("runner: save run log failed")
				}
				continue
			}
			source.ApplyExtractionConfig(*cfg)
			r.saveSourceConfig(ctx, source)
			r.runMappingForSource(ctx, rc, source)
		}

		records, _ := r.scrapeSource(ctx, rc, source)
		r.saveRecordsAndFinish(ctx, rc, source, records)
	}
	return nil
}

// runSingleURLMode processes exactly the one URL named by cfg.Agent.URL,
// discovering it first if the loader didn't find an existing config.
func (r *Runner) runSingleURLMode(ctx context.Context) error {
	targetURL := r.cfg.Agent.URL
	if targetURL == "" {
		return fmt.Errorf("runner: --url is required for single_url mode")
	}
	r.logger.Info().Str("url", targetURL).Msg("runner: single URL mode")

	sources, err := r.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("runner: load source: %w", err)
	}
	if len(sources) == 0 {
		return fmt.Errorf("runner: loader returned no source for %s", targetURL)
	}
	source := &sources[0]

	rc := runctx.New(r.cfg, r.logger, source.ID, source.EntryURL)

	if !source.HasConfig() {
		r.logger.Info().Str("url", targetURL).Msg("runner: no existing config — running discovery")
		cfg, err := r.discoverSource(ctx, rc, targetURL)
		if err != nil {
			return err
		}
		if cfg == nil {
			r.logger.Error().Str("url", targetURL).Msg("runner: discovery failed — cannot scrape")
			rc.AddError(targetURL, "discovery failed — cannot scrape", true)
			if err := r.output.SaveRunLog(ctx, rc.ToRunLog()); err != nil {
				r.logger.Warn().Err(err).Msg("runner: save run log failed")
			}
			r.updateHealth(ctx, source, false, 0)
			r.saveSourceConfig(ctx, source)
			return nil
		}
		source.ApplyExtractionConfig(*cfg)
		r.saveSourceConfig(ctx, source)
		r.runMappingForSource(ctx, rc, source)
	}

	records, _ := r.scrapeSource(ctx, rc, source)
	r.saveRecordsAndFinish(ctx, rc, source, records)
	return nil
}

// discoverSource runs the crawl-then-AI-analysis pipeline for entryURL,
// returning nil, nil when the crawl turned up no candidates or the AI
// recommendation was rejected — both "no config" outcomes.
func (r *Runner) discoverSource(ctx context.Context, rc *runctx.RunContext, entryURL string) (*models.ExtractionConfig, error) {
	if r.oracle == nil {
		r.logger.Warn().Msg("runner: no LM oracle configured — cannot run discovery")
		return nil, nil
	}

	maxPages := r.cfg.Agent.MaxPagesPerSource
	requestDelay := time.Duration(r.cfg.Agent.RequestDelayMs) * time.Millisecond

	discoveryCtx := ctx
	if r.cfg.Agent.DiscoveryTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		discoveryCtx, cancel = context.WithTimeout(ctx, time.Duration(r.cfg.Agent.DiscoveryTimeoutSeconds)*time.Second)
		defer cancel()
	}

	result := r.discoveryEngine.Run(discoveryCtx, rc, entryURL, maxPages, requestDelay)
	return discoverymode.Run(ctx, r.oracle, rc, result)
}

// runMappingForSource performs a quick scrape to obtain sample data, then
// generates and saves a SchemaMapping via the AI mapper — unless the
// source already has one.
func (r *Runner) runMappingForSource(ctx context.Context, rc *runctx.RunContext, source *models.Source) {
	if len(source.SchemaMapping.FieldMap) > 0 {
		r.logger.Debug().Msg("runner: source already has schemaMapping — skipping AI mapping")
		return
	}
	if r.oracle == nil {
		r.logger.Warn().Msg("runner: no LM oracle configured — cannot run mapping")
		return
	}

	r.logger.Info().Msg("runner: running quick scrape for schema mapping sample data")
	raw, err := r.scrapeRaw(ctx, rc, source)
	if err != nil || len(raw) == 0 {
		r.logger.Warn().Msg("runner: no sample data for mapping — skipping")
		return
	}

	rawFields := make([]string, 0, len(raw[0]))
	for field := range raw[0] {
		rawFields = append(rawFields, field)
	}
	sample := raw
	if len(sample) > mappingSampleLimit {
		sample = sample[:mappingSampleLimit]
	}

	mapping, err := mappingmode.Run(ctx, r.oracle, rc, rawFields, sample, source.EntryURL, string(source.ExtractionType))
	if err != nil {
		r.logger.Warn().Err(err).Msg("runner: schema mapping generation error")
		return
	}
	if mapping == nil {
		return
	}

	source.ApplySchemaMapping(*mapping)
	r.saveSourceConfig(ctx, source)
	r.logger.Info().Str("url", source.EntryURL).Msg("runner: schema mapping saved")
}

// scrapeSource extracts raw records per source.ExtractionType and
// normalizes them per source.SchemaMapping.
func (r *Runner) scrapeSource(ctx context.Context, rc *runctx.RunContext, source *models.Source) ([]models.UnifiedPriceRecord, error) {
	raw, err := r.scrapeRaw(ctx, rc, source)
	if err != nil {
		return nil, err
	}
	rc.RecordsExtracted = len(raw)
	if len(raw) == 0 {
		rc.AddError(source.EntryURL, "scraper returned 0 records", false)
		return nil, nil
	}

	if len(source.SchemaMapping.FieldMap) == 0 {
		r.logger.Warn().Str("url", source.EntryURL).Msg("runner: no schemaMapping — cannot normalize raw records")
		return nil, nil
	}

	sourceName := source.Name
	if sourceName == "" {
		sourceName = "other"
	}
	normalized := normalize.Normalize(raw, source.SchemaMapping, sourceName, r.logger)
	r.logger.Info().Int("raw", len(raw)).Int("normalized", len(normalized)).Str("url", source.EntryURL).Msg("runner: scrape complete")
	return normalized, nil
}

// scrapeRaw dispatches to the scraper matching source.ExtractionType.
func (r *Runner) scrapeRaw(ctx context.Context, rc *runctx.RunContext, source *models.Source) ([]map[string]any, error) {
	if source.ExtractionType == "" || source.ExtractionType == models.ExtractionTypeUndefined {
		rc.AddError(source.EntryURL, "no extractionType configured — needs discovery", true)
		return nil, nil
	}
	r.logger.Info().Str("url", source.EntryURL).Str("type", string(source.ExtractionType)).Msg("runner: scraping")

	requestDelay := time.Duration(r.cfg.Agent.RequestDelayMs) * time.Millisecond

	switch source.ExtractionType {
	case models.ExtractionTypeAPI:
		if source.Endpoint == "" {
			rc.AddError(source.EntryURL, "no API endpoint configured", false)
			return nil, nil
		}
		cfg := models.APIConfig{
			Endpoint:        source.Endpoint,
			Method:          source.EndpointMethod,
			Params:          source.EndpointParams,
			Headers:         source.EndpointHeaders,
			PostData:        source.EndpointPostData,
			PostContentType: source.PostContentType,
			Paginate:        source.Paginate,
			PaginationMode:  source.PaginationMode,
		}
		return r.api.Scrape(ctx, rc, cfg, requestDelay)

	case models.ExtractionTypeHTMLTable:
		pageURL := source.HTMLPageURL
		if pageURL == "" {
			pageURL = source.EntryURL
		}
		return r.html.Scrape(ctx, rc, pageURL, source.HTMLSelector, 0)

	case models.ExtractionTypePDFExcel:
		if source.FileURL == "" {
			rc.AddError(source.EntryURL, "no file URL configured", false)
			return nil, nil
		}
		return r.file.Scrape(ctx, rc, source.FileURL, source.FileType)

	default:
		rc.AddError(source.EntryURL, fmt.Sprintf("unknown extractionType: %s", source.ExtractionType), true)
		return nil, nil
	}
}

// saveRecordsAndFinish persists extracted records and the run log, then
// updates and persists the source's health status — the tail shared by
// every mode's per-source loop body.
func (r *Runner) saveRecordsAndFinish(ctx context.Context, rc *runctx.RunContext, source *models.Source, records []models.UnifiedPriceRecord) {
	if len(records) > 0 {
		saved, err := r.output.SavePrices(ctx, records)
		if err != nil {
			r.logger.Warn().Err(err).Msg("runner: save prices failed")
		}
		rc.RecordsSaved = saved
	}

	if err := r.output.SaveRunLog(ctx, rc.ToRunLog()); err != nil {
		r.logger.Warn().Err(err).Msg("runner: save run log failed")
	}

	r.updateHealth(ctx, source, len(records) > 0, rc.RecordsSaved)
	r.saveSourceConfig(ctx, source)
}

// updateHealth queries the last health.RecentRunWindow runs for source
// (the one just saved by saveRecordsAndFinish included) and feeds the
// resulting failure count and prior-success flag into health.Update,
// rather than trusting an in-memory counter that a stray success could
// silently reset.
func (r *Runner) updateHealth(ctx context.Context, source *models.Source, success bool, recordsSaved int) {
	recentFailures, err := r.output.CountRecentFailures(ctx, source.ID, health.RecentRunWindow)
	if err != nil {
		r.logger.Warn().Err(err).Msg("runner: count recent failures failed")
	}

	lastSuccess, err := r.output.FindLatestSuccessful(ctx, source.ID)
	if err != nil {
		r.logger.Warn().Err(err).Msg("runner: find latest successful run failed")
	}

	health.Update(source, success, recordsSaved, recentFailures, lastSuccess != nil, time.Now())
}

func (r *Runner) saveSourceConfig(ctx context.Context, source *models.Source) {
	if err := r.output.SaveSourceConfig(ctx, source); err != nil {
		r.logger.Warn().Err(err).Str("url", source.EntryURL).Msg("runner: save source config failed")
	}
}
