// Package filescrape downloads a discovered data file (PDF/Excel/CSV) and
// extracts its tabular content, grounded on
// original_source/scraper/app/scraping/file_scraper.py.
package filescrape

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/interfaces"
	"github.com/ternarybob/mandi-agent/internal/runctx"
)

const downloadTimeout = 60 * time.Second

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Scraper downloads a file over plain net/http and dispatches extraction to
// the collaborator matching its type.
type Scraper struct {
	client      *http.Client
	pdf         interfaces.PDFTabulator
	spreadsheet interfaces.SpreadsheetTabulator
	logger      arbor.ILogger
}

func New(pdf interfaces.PDFTabulator, spreadsheet interfaces.SpreadsheetTabulator, logger arbor.ILogger) *Scraper {
	return &Scraper{
		client:      &http.Client{Timeout: downloadTimeout},
		pdf:         pdf,
		spreadsheet: spreadsheet,
		logger:      logger,
	}
}

// Scrape downloads fileURL (auto-detecting fileType from its extension if
// fileType is empty) and extracts its tabular content as a flat list of
// header-keyed row maps.
func (s *Scraper) Scrape(ctx context.Context, rc *runctx.RunContext, fileURL, fileType string) ([]map[string]any, error) {
	if fileType == "" {
		fileType = detectFileType(fileURL)
		if fileType == "" {
			rc.AddError(fileURL, "cannot determine file type", false)
			return nil, nil
		}
	}

	content, err := s.download(ctx, fileURL)
	if err != nil {
		rc.AddError(fileURL, fmt.Sprintf("download error: %v", err), false)
		return nil, nil
	}

	switch fileType {
	case "pdf":
		return s.extractPDF(ctx, rc, content, fileURL)
	case "excel", "xlsx", "xls":
		return s.extractExcel(ctx, rc, content, fileURL)
	case "csv":
		return extractCSV(content, fileURL, rc)
	default:
		rc.AddError(fileURL, fmt.Sprintf("unsupported file type: %s", fileType), false)
		return nil, nil
	}
}

func detectFileType(fileURL string) string {
	lower := strings.ToLower(fileURL)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "pdf"
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xls"):
		return "excel"
	case strings.HasSuffix(lower, ".csv"):
		return "csv"
	default:
		return ""
	}
}

func (s *Scraper) download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// extractPDF writes content to a temp file (the PDFTabulator collaborator
// operates on file paths, matching pdf_extractor.go's boundary) and flattens
// each page's PDFTableData into header-keyed row maps.
func (s *Scraper) extractPDF(ctx context.Context, rc *runctx.RunContext, content []byte, fileURL string) ([]map[string]any, error) {
	if s.pdf == nil {
		rc.AddError(fileURL, "no PDF tabulator configured", false)
		return nil, nil
	}

	tmpPath, cleanup, err := writeTempFile(content, "filescrape-*.pdf")
	if err != nil {
		rc.AddError(fileURL, fmt.Sprintf("PDF extraction error: %v", err), false)
		return nil, nil
	}
	defer cleanup()

	tables, err := s.pdf.ExtractTables(ctx, tmpPath)
	if err != nil {
		rc.AddError(fileURL, fmt.Sprintf("PDF extraction error: %v", err), false)
		return nil, nil
	}

	var records []map[string]any
	for _, table := range tables {
		records = append(records, rowsToRecords(table.Headers, table.Rows)...)
	}
	s.logger.Info().Int("rows", len(records)).Str("url", fileURL).Msg("filescrape: extracted PDF rows")
	return records, nil
}

func (s *Scraper) extractExcel(ctx context.Context, rc *runctx.RunContext, content []byte, fileURL string) ([]map[string]any, error) {
	if s.spreadsheet == nil {
		rc.AddError(fileURL, "no spreadsheet tabulator configured", false)
		return nil, nil
	}

	tmpPath, cleanup, err := writeTempFile(content, "filescrape-*.xlsx")
	if err != nil {
		rc.AddError(fileURL, fmt.Sprintf("Excel extraction error: %v", err), false)
		return nil, nil
	}
	defer cleanup()

	sheets, err := s.spreadsheet.ExtractTables(ctx, tmpPath)
	if err != nil {
		rc.AddError(fileURL, fmt.Sprintf("Excel extraction error: %v", err), false)
		return nil, nil
	}

	var records []map[string]any
	for _, sheet := range sheets {
		records = append(records, rowsToRecords(sheet.Headers, sheet.Rows)...)
	}
	s.logger.Info().Int("rows", len(records)).Str("url", fileURL).Msg("filescrape: extracted Excel rows")
	return records, nil
}

// extractCSV decodes content trying utf-8 then a byte-for-byte latin-1
// fallback (cp1252 is not decoded separately), grounded on _extract_csv's
// encoding-trial loop.
func extractCSV(content []byte, fileURL string, rc *runctx.RunContext) ([]map[string]any, error) {
	rows := parseCSVRows(decodeCSVBytes(content))
	if len(rows) < 2 {
		return nil, nil
	}
	headers := rows[0]
	var records []map[string]any
	for _, row := range rows[1:] {
		record := make(map[string]any, len(headers))
		allBlank := true
		for i, cell := range row {
			key := fmt.Sprintf("col_%d", i)
			if i < len(headers) && headers[i] != "" {
				key = headers[i]
			}
			record[key] = cell
			if cell != "" {
				allBlank = false
			}
		}
		if !allBlank {
			records = append(records, record)
		}
	}
	rc.Logger.Info().Int("rows", len(records)).Str("url", fileURL).Msg("filescrape: extracted CSV rows")
	return records, nil
}

// decodeCSVBytes tries utf-8 first, falling back to a latin-1 byte-for-byte
// decode (every single byte value is a valid latin-1 code point, so this
// fallback never fails — mirroring the original's encoding-trial loop,
// which in practice never reaches its "cannot decode" branch either).
func decodeCSVBytes(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	return string(latin1ToUTF8(content))
}

func latin1ToUTF8(content []byte) []rune {
	runes := make([]rune, len(content))
	for i, b := range content {
		runes[i] = rune(b)
	}
	return runes
}

// parseCSVRows parses a full CSV document into rows via encoding/csv
// (not strings.Split, which mis-parses any quoted field containing a
// comma — e.g. a thousands-separated price like "2,500").
func parseCSVRows(text string) [][]string {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil
	}

	out := rows[:0]
	for _, row := range rows {
		blank := true
		for _, cell := range row {
			if cell != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, row)
		}
	}
	return out
}

func rowsToRecords(headers []string, rows [][]string) []map[string]any {
	var records []map[string]any
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		record := make(map[string]any, len(row))
		allBlank := true
		for i, cell := range row {
			key := fmt.Sprintf("col_%d", i)
			if i < len(headers) && headers[i] != "" {
				key = headers[i]
			}
			record[key] = cell
			if cell != "" {
				allBlank = false
			}
		}
		if !allBlank {
			records = append(records, record)
		}
	}
	return records
}

func writeTempFile(content []byte, pattern string) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", func() {}, err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", func() {}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", func() {}, err
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
