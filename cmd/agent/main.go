// -----------------------------------------------------------------------
// cmd/agent: the mandi price discovery/scraping agent CLI entrypoint.
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/browserdrv"
	"github.com/ternarybob/mandi-agent/internal/common"
	"github.com/ternarybob/mandi-agent/internal/discovery"
	"github.com/ternarybob/mandi-agent/internal/filetabulate/pdf"
	"github.com/ternarybob/mandi-agent/internal/ioadapters"
	"github.com/ternarybob/mandi-agent/internal/llm"
	"github.com/ternarybob/mandi-agent/internal/models"
	"github.com/ternarybob/mandi-agent/internal/runner"
	"github.com/ternarybob/mandi-agent/internal/schedule"
	"github.com/ternarybob/mandi-agent/internal/scrape/apiscrape"
	"github.com/ternarybob/mandi-agent/internal/scrape/filescrape"
	"github.com/ternarybob/mandi-agent/internal/scrape/htmlscrape"
	"github.com/ternarybob/mandi-agent/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags,
// matching the teacher's cmd/quaero/main.go idiom.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths

	flagMode     = flag.String("mode", "", "Agent mode: scrape|discover|discover_and_scrape|single_url (overrides config)")
	flagURL      = flag.String("url", "", "Target URL for single_url mode (overrides config)")
	flagInput    = flag.String("input", "", "Input mode: mongo|csv (overrides config)")
	flagLog      = flag.String("log", "", "Log mode: mongo|txt (overrides config)")
	flagHeadless = flag.Bool("headless", true, "Run the browser headless (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("mandi-agent version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER), matching cmd/quaero/main.go:
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	if len(configFiles) == 0 {
		if _, err := os.Stat("agent.toml"); err == nil {
			configFiles = append(configFiles, "agent.toml")
		}
	}

	cfg, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Err(err).Strs("paths", configFiles).Msg("failed to load configuration")
		os.Exit(1)
	}

	var headlessOverride *bool
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			headlessOverride = flagHeadless
		}
	})
	common.ApplyFlagOverrides(cfg, *flagMode, *flagURL, *flagInput, *flagLog, headlessOverride)

	logger := common.SetupLogger(cfg)
	common.PrintBanner(cfg, logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("agent run failed")
		os.Exit(1)
	}

	common.Stop()
}

// run wires every component and delegates to runner.Runner, matching
// runner.py's module-level main()/_build_components() wiring.
func run(cfg *common.Config, logger arbor.ILogger) error {
	driver := browserdrv.New(cfg.Browser.Headless, time.Duration(cfg.Browser.NavTimeoutSec)*time.Second, logger)
	discoveryEngine := discovery.New(driver)

	oracle, err := llm.New(cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("no LM oracle available — discovery/mapping modes will be skipped")
		oracle = nil
	}

	apiScraper := apiscrape.New(logger)
	htmlScraper := htmlscrape.New(logger)

	pdfTabulator, err := pdf.New(logger, "")
	if err != nil {
		return fmt.Errorf("init pdf tabulator: %w", err)
	}
	// No spreadsheet-reading library exists anywhere in the example
	// corpus (see DESIGN.md's C15 entry) — the excel path surfaces a
	// clear "no spreadsheet backend configured" error instead.
	fileScraper := filescrape.New(pdfTabulator, nil, logger)

	loader, output, closeStorage, err := buildAdapters(cfg, logger)
	if err != nil {
		return fmt.Errorf("build storage adapters: %w", err)
	}
	defer closeStorage()

	r := runner.New(cfg, logger, discoveryEngine, oracle, apiScraper, htmlScraper, fileScraper, loader, output)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("interrupt received — shutting down")
		cancel()
	}()

	if cfg.Agent.Schedule != "" {
		sched := schedule.New(logger)
		return sched.Start(ctx, cfg.Agent.Schedule, func() error { return r.Run(ctx) })
	}

	return r.Run(ctx)
}

// buildAdapters selects the CSV or badgerhold-backed SourceLoader/Output
// pair per cfg.Agent.InputMode, matching runner.py's
// _get_input_adapter/_get_output_adapter factory functions.
func buildAdapters(cfg *common.Config, logger arbor.ILogger) (runner.SourceLoader, runner.Output, func(), error) {
	noop := func() {}

	if cfg.Agent.InputMode == "csv" {
		var loader runner.SourceLoader
		if cfg.Agent.Mode == "single_url" {
			loader = ioadapters.NewSingleURLLoader(nil, cfg.Agent.URL)
		} else {
			loader = ioadapters.NewCSVSourceLoader(cfg.Storage.CSV.InputPath)
		}

		output, err := ioadapters.NewCSVOutput(cfg.Storage.CSV.OutputPath, logger)
		if err != nil {
			return nil, nil, noop, err
		}
		return loader, output, noop, nil
	}

	db, err := badger.NewDB(logger, cfg.Storage.Badger.Path)
	if err != nil {
		return nil, nil, noop, err
	}

	sourceStore := badger.NewSourceStore(db, logger)
	priceStore := badger.NewPriceStore(db, logger)
	runStore := badger.NewRunStore(db, logger)

	var loader runner.SourceLoader
	if cfg.Agent.Mode == "single_url" {
		loader = ioadapters.NewSingleURLLoader(sourceStore, cfg.Agent.URL)
	} else {
		loader = ioadapters.NewDBSourceLoader(sourceStore)
	}

	output := badgerOutput{sources: sourceStore, prices: priceStore, runs: runStore}
	return loader, output, func() { db.Close() }, nil
}

// badgerOutput adapts the three independent badger stores (C18's Open
// Question decision: no aggregating Manager) to the single runner.Output
// surface. CountRecentFailures/FindLatestSuccessful pass straight through
// to runs so internal/health.Update can derive BROKEN/STALE from real
// run history instead of an in-memory counter.
type badgerOutput struct {
	sources *badger.SourceStore
	prices  *badger.PriceStore
	runs    *badger.RunStore
}

func (o badgerOutput) SavePrices(ctx context.Context, records []models.UnifiedPriceRecord) (int, error) {
	return o.prices.SavePrices(ctx, records)
}

func (o badgerOutput) SaveRunLog(ctx context.Context, log models.RunLog) error {
	return o.runs.SaveRunLog(ctx, log)
}

func (o badgerOutput) SaveSourceConfig(ctx context.Context, source *models.Source) error {
	return o.sources.SaveSourceConfig(ctx, source)
}

func (o badgerOutput) CountRecentFailures(ctx context.Context, sourceID string, lastN int) (int, error) {
	return o.runs.CountRecentFailures(ctx, sourceID, lastN)
}

func (o badgerOutput) FindLatestSuccessful(ctx context.Context, sourceID string) (*models.RunLog, error) {
	return o.runs.FindLatestSuccessful(ctx, sourceID)
}
