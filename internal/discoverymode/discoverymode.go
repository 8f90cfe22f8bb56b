// Package discoverymode runs the LM oracle over a completed DiscoveryResult
// to pick an extraction strategy (api/html_table/pdf_excel), grounded on
// original_source's app/ai/discovery_mode.py.
package discoverymode

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/mandi-agent/internal/llm"
	"github.com/ternarybob/mandi-agent/internal/models"
	"github.com/ternarybob/mandi-agent/internal/runctx"
)

// rawExtractionConfig is the wire shape the LM oracle is prompted to
// return — a flat struct mirroring discovery_mode.py's Pydantic
// ExtractionConfig, which this package then folds into models.ExtractionConfig's
// discriminated-union shape.
type rawExtractionConfig struct {
	ExtractionType string            `json:"extraction_type"`
	Confidence     float64           `json:"confidence"`
	Reasoning      string            `json:"reasoning"`
	Endpoint       string            `json:"endpoint"`
	Method         string            `json:"method"`
	Params         map[string]string `json:"params"`
	Headers        map[string]string `json:"headers"`
	PaginationMode string            `json:"pagination_mode"`
	PageURL        string            `json:"page_url"`
	HTMLSelector   string            `json:"html_selector"`
	TableHeaders   []string          `json:"table_headers"`
	FileURL        string            `json:"file_url"`
	FileType       string            `json:"file_type"`
}

var discoverySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"extraction_type": map[string]any{"type": "string", "description": "One of: api, html_table, pdf_excel"},
		"confidence":      map[string]any{"type": "number", "description": "Confidence score between 0.0 and 1.0"},
		"reasoning":       map[string]any{"type": "string", "description": "Brief explanation of why this method was chosen"},
		"endpoint":        map[string]any{"type": "string", "description": "API endpoint URL"},
		"method":          map[string]any{"type": "string", "description": "HTTP method"},
		"params":          map[string]any{"type": "object", "description": "Query parameters or POST body"},
		"headers":         map[string]any{"type": "object", "description": "Required request headers"},
		"pagination_mode": map[string]any{"type": "string", "description": "API pagination strategy: none, page, or offset (default: page)"},
		"page_url":        map[string]any{"type": "string", "description": "URL of the page containing the table"},
		"html_selector":   map[string]any{"type": "string", "description": "CSS selector for the target table"},
		"table_headers":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"file_url":        map[string]any{"type": "string", "description": "URL of the downloadable file"},
		"file_type":       map[string]any{"type": "string", "description": "File type: pdf or excel"},
	},
	"required": []string{"extraction_type", "confidence", "reasoning"},
}

const discoverySystemPrompt = `You are an expert web scraping analyst specializing in Indian agricultural market (mandi) data portals. Your job is to analyze crawled website data and determine the best way to extract commodity price information.

You will receive discovery results from a web crawler including:
- Pages visited with their titles and link counts
- API endpoints captured from network traffic (XHR/fetch calls)
- HTML tables found with their column headers and sample data
- Downloadable files (PDF, Excel) detected

Your task is to select the BEST extraction strategy with this priority order:
1. API endpoint (most reliable, fastest for daily scraping)
2. HTML table (if no API available)
3. PDF/Excel file (last resort)

Be precise and return structured JSON output.`

const discoveryUserPromptTemplate = `Analyze the following discovery results and recommend the best extraction strategy for getting daily mandi/commodity price data.

## Discovery Results
%s

## Instructions
1. Evaluate all candidates (APIs, tables, files)
2. Select the best extraction type based on data quality and reliability
3. Provide specific configuration for the chosen method
4. Rate your confidence (0.0 to 1.0)

Return your analysis as JSON.`

// Run analyzes a completed DiscoveryResult and recommends an extraction
// strategy. Returns nil, nil when discovery produced no candidates or the
// AI recommendation fell below models.MinDiscoveryConfidence — both are
// "no config" outcomes, not errors.
func Run(ctx context.Context, oracle llm.Oracle, rc *runctx.RunContext, result models.DiscoveryResult) (*models.ExtractionConfig, error) {
	if !hasCandidates(result) {
		rc.Logger.Warn().Str("url", result.EntryURL).Msg("discoverymode: no candidates found during discovery — AI has nothing to analyze")
		return nil, nil
	}

	trimmed := result.ToAIContext()
	contextJSON, err := json.MarshalIndent(trimmed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("discoverymode: marshal ai context: %w", err)
	}

	rc.Logger.Info().Str("url", result.EntryURL).Msg("discoverymode: running AI discovery analysis")

	raw, err := oracle.Generate(ctx, llm.Request{
		System: discoverySystemPrompt,
		User:   fmt.Sprintf(discoveryUserPromptTemplate, string(contextJSON)),
		Schema: discoverySchema,
	})
	if err != nil {
		rc.AddError(result.EntryURL, fmt.Sprintf("AI discovery error: %v", err), false)
		return nil, nil
	}

	var parsed rawExtractionConfig
	if err := json.Unmarshal(raw, &parsed); err != nil {
		rc.AddError(result.EntryURL, fmt.Sprintf("AI discovery error: malformed JSON response: %v", err), false)
		return nil, nil
	}

	parsed.ExtractionType = normalizeExtractionType(parsed.ExtractionType)
	parsed.HTMLSelector = cleanSelector(parsed.HTMLSelector)

	rc.Logger.Info().
		Str("extractionType", parsed.ExtractionType).
		Float64("confidence", parsed.Confidence).
		Str("reasoning", parsed.Reasoning).
		Msg("discoverymode: AI recommendation")

	if parsed.Confidence < models.MinDiscoveryConfidence {
		rc.Logger.Warn().
			Float64("confidence", parsed.Confidence).
			Float64("threshold", models.MinDiscoveryConfidence).
			Msg("discoverymode: AI confidence below threshold — rejecting")
		return nil, nil
	}

	return toExtractionConfig(parsed), nil
}

func hasCandidates(result models.DiscoveryResult) bool {
	return len(result.APICandidates) > 0 || len(result.TableCandidates) > 0 || len(result.FileCandidates) > 0
}

// normalizeExtractionType folds common LLM misspellings/synonyms onto the
// three canonical extraction types, ported from discovery_mode.py's
// normalize_type field_validator.
func normalizeExtractionType(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "table", "html", "htmltable":
		return string(models.ExtractionTypeHTMLTable)
	case "api", "json":
		return string(models.ExtractionTypeAPI)
	case "file", "pdf", "excel", "pdfexcel", "download":
		return string(models.ExtractionTypePDFExcel)
	}
	return v
}

// cleanSelector rejects selectors that look like hallucinated HTML or are
// too generic to be useful, ported from discovery_mode.py's clean_selector
// field_validator.
func cleanSelector(v string) string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "<") {
		return ""
	}
	if strings.ToLower(v) == "table" {
		return ""
	}
	return v
}

func toExtractionConfig(parsed rawExtractionConfig) *models.ExtractionConfig {
	cfg := &models.ExtractionConfig{
		ExtractionType: models.ExtractionType(parsed.ExtractionType),
		Confidence:     parsed.Confidence,
		Reasoning:      parsed.Reasoning,
	}

	switch cfg.ExtractionType {
	case models.ExtractionTypeAPI:
		mode := normalizePaginationMode(parsed.PaginationMode)
		cfg.API = &models.APIConfig{
			Endpoint:       parsed.Endpoint,
			Method:         defaultString(parsed.Method, "GET"),
			Params:         parsed.Params,
			Headers:        parsed.Headers,
			Paginate:       mode != models.PaginationNone,
			PaginationMode: mode,
		}
	case models.ExtractionTypeHTMLTable:
		cfg.HTML = &models.HTMLConfig{
			PageURL:      parsed.PageURL,
			Selector:     parsed.HTMLSelector,
			TableHeaders: parsed.TableHeaders,
		}
	case models.ExtractionTypePDFExcel:
		cfg.File = &models.FileConfig{
			FileURL:  parsed.FileURL,
			FileType: parsed.FileType,
		}
	}

	return cfg
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// normalizePaginationMode folds the AI's free-text pagination_mode onto
// the three canonical modes, defaulting an absent/unrecognized value to
// "page" — matching original_source's scrape_engine.py
// paginate=source.get("paginate", True) default-on behavior, since a
// freshly-discovered API source should attempt pagination unless the AI
// explicitly says otherwise.
func normalizePaginationMode(v string) models.PaginationMode {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none", "no", "false", "single":
		return models.PaginationNone
	case "offset":
		return models.PaginationOffset
	default:
		return models.PaginationPage
	}
}
