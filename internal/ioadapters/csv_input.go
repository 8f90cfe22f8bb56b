// Package ioadapters provides the "csv" input-mode and output-mode
// SourceLoader/Output implementations named in spec.md §6, grounded on
// original_source/scraper/app/inputs/csv_input.py,
// app/inputs/db_input.py, app/inputs/single_url_input.py and
// app/outputs/csv_output.py.
package ioadapters

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/mandi-agent/internal/models"
	"github.com/ternarybob/mandi-agent/internal/urlutil"
)

// CSVSourceLoader reads source configurations from a CSV file for
// offline demo/testing, matching csv_input.py's CsvInput.load_sources.
type CSVSourceLoader struct {
	path string
}

// NewCSVSourceLoader returns a loader reading sources from path.
func NewCSVSourceLoader(path string) *CSVSourceLoader {
	return &CSVSourceLoader{path: path}
}

// Load parses the CSV file's entryUrl/baseUrl/name/extractionType/endpoint
// columns into Sources, skipping any row with a blank entryUrl.
func (l *CSVSourceLoader) Load(ctx context.Context) ([]models.Source, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("ioadapters: csv sources file not found: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("ioadapters: read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var sources []models.Source
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ioadapters: read csv row: %w", err)
		}

		entryURL := get(row, "entryUrl")
		if entryURL == "" {
			continue
		}

		baseURL := get(row, "baseUrl")
		if baseURL == "" {
			baseURL = urlutil.ExtractBaseURL(entryURL)
		}

		source := models.Source{
			EntryURL:     entryURL,
			BaseURL:      baseURL,
			Name:         get(row, "name"),
			HealthStatus: models.HealthOK,
		}
		if extractionType := get(row, "extractionType"); extractionType != "" {
			source.ExtractionType = models.ExtractionType(extractionType)
		}
		if endpoint := get(row, "endpoint"); endpoint != "" {
			source.Endpoint = endpoint
		}

		sources = append(sources, source)
	}

	return sources, nil
}
