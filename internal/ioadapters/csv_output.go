package ioadapters

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/models"
)

// CSVOutput writes scrape results to CSV+JSON files, matching
// csv_output.py's CsvOutput.
type CSVOutput struct {
	dir    string
	logger arbor.ILogger
}

// NewCSVOutput returns a CSVOutput writing under dir, creating it if
// absent.
func NewCSVOutput(dir string, logger arbor.ILogger) (*CSVOutput, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("ioadapters: create output directory: %w", err)
	}
	return &CSVOutput{dir: dir, logger: logger}, nil
}

// SavePrices writes records as both a timestamped CSV and JSON file,
// matching CsvOutput.save_prices.
func (o *CSVOutput) SavePrices(ctx context.Context, records []models.UnifiedPriceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	timestamp := time.Now().UTC().Format("20060102_150405")

	csvPath := filepath.Join(o.dir, fmt.Sprintf("prices_%s.csv", timestamp))
	if err := o.writeCSV(csvPath, records); err != nil {
		return 0, err
	}
	o.logger.Info().Int("records", len(records)).Str("path", csvPath).Msg("ioadapters: wrote price csv")

	jsonPath := filepath.Join(o.dir, fmt.Sprintf("prices_%s.json", timestamp))
	if err := writeJSON(jsonPath, records); err != nil {
		return 0, err
	}
	o.logger.Info().Int("records", len(records)).Str("path", jsonPath).Msg("ioadapters: wrote price json")

	return len(records), nil
}

// SaveSourceConfig writes source as JSON under a sanitized filename,
// matching CsvOutput.save_source_config.
func (o *CSVOutput) SaveSourceConfig(ctx context.Context, source *models.Source) error {
	name := source.Name
	if name == "" {
		name = source.EntryURL
	}
	path := filepath.Join(o.dir, fmt.Sprintf("source_%s.json", sanitizeFilename(name)))
	if err := writeJSON(path, source); err != nil {
		return err
	}
	o.logger.Info().Str("path", path).Msg("ioadapters: wrote source config")
	return nil
}

// SaveRunLog appends a timestamped run log JSON file, matching
// CsvOutput.save_run.
func (o *CSVOutput) SaveRunLog(ctx context.Context, log models.RunLog) error {
	timestamp := time.Now().UTC().Format("20060102_150405")
	path := filepath.Join(o.dir, fmt.Sprintf("run_%s.json", timestamp))
	if err := writeJSON(path, log); err != nil {
		return err
	}
	o.logger.Info().Str("path", path).Msg("ioadapters: wrote run log")
	return nil
}

// CountRecentFailures counts failed runs among the most recent lastN
// run_*.json files for sourceID. CSVOutput has no query engine, so this
// scans the output directory and sorts by StartTime in Go, mirroring
// badger.RunStore.CountRecentFailures's semantics without a real index.
func (o *CSVOutput) CountRecentFailures(ctx context.Context, sourceID string, lastN int) (int, error) {
	runs, err := o.loadRunLogsForSource(sourceID)
	if err != nil {
		return 0, err
	}
	if len(runs) > lastN {
		runs = runs[:lastN]
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
// sourceID, or nil if none exists.
func (o *CSVOutput) FindLatestSuccessful(ctx context.Context, sourceID string) (*models.RunLog, error) {
	runs, err := o.loadRunLogsForSource(sourceID)
	if err != nil {
		return nil, err
	}
	for _, r := range runs {
		if r.Success {
			log := r
			return &log, nil
		}
	}
	return nil, nil
}

// loadRunLogsForSource reads every run_*.json file in the output
// directory, keeps the ones matching sourceID, and sorts them newest
// first by StartTime.
func (o *CSVOutput) loadRunLogsForSource(sourceID string) ([]models.RunLog, error) {
	matches, err := filepath.Glob(filepath.Join(o.dir, "run_*.json"))
	if err != nil {
		return nil, fmt.Errorf("ioadapters: glob run logs: %w", err)
	}

	var runs []models.RunLog
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var log models.RunLog
		if err := json.Unmarshal(data, &log); err != nil {
			continue
		}
		if log.SourceID != sourceID {
			continue
		}
		runs = append(runs, log)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartTime.After(runs[j].StartTime)
	})
	return runs, nil
}

// writeCSV writes records using models.UnifiedFieldOrder as the column
// order, matching CsvOutput._write_csv's fixed-schema-first ordering.
func (o *CSVOutput) writeCSV(path string, records []models.UnifiedPriceRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ioadapters: create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(models.UnifiedFieldOrder); err != nil {
		return fmt.Errorf("ioadapters: write csv header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.CropID, rec.CropName, rec.MandiID, rec.MandiName, rec.StateID, rec.StateName,
			rec.Date,
			strconv.FormatFloat(rec.MinPrice, 'f', -1, 64),
			strconv.FormatFloat(rec.MaxPrice, 'f', -1, 64),
			strconv.FormatFloat(rec.ModalPrice, 'f', -1, 64),
			rec.Unit,
			strconv.FormatFloat(rec.Arrival, 'f', -1, 64),
			rec.Source,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("ioadapters: write csv row: %w", err)
		}
	}
	if err := w.Error(); err != nil {
		return fmt.Errorf("ioadapters: flush csv: %w", err)
	}
	return nil
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ioadapters: create json file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("ioadapters: encode json: %w", err)
	}
	return nil
}

// sanitizeFilename keeps alphanumerics, '-' and '_', matching
// CsvOutput._write_csv's isalnum-or-dash-underscore filter.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
