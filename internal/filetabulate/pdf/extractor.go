// Package pdf implements interfaces.PDFTabulator with pdfcpu, adapted from
// _examples/ternarybob-quaero/internal/services/pdf/extractor.go's
// ReadContextFile/ExtractContentFile usage — rewritten to return
// PDFTableData (rows split from the extracted page text) instead of plain
// text, since C15 (the file scraper) needs tabular rows, not prose.
package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/interfaces"
)

// minColumnsForRow is the minimum whitespace-delimited column count a
// text line must have to be treated as a table row rather than stray
// prose/header text.
const minColumnsForRow = 3

var columnSplitter = regexp.MustCompile(`\s{2,}|\t+`)

// Tabulator implements interfaces.PDFTabulator.
type Tabulator struct {
	logger  arbor.ILogger
	tempDir string
}

var _ interfaces.PDFTabulator = (*Tabulator)(nil)

// New creates a PDF tabulator. tempDir is where pdfcpu's intermediate
// content-extraction files are written; it is created if absent.
func New(logger arbor.ILogger, tempDir string) (*Tabulator, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "mandi-agent-pdf")
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("pdf: create temp dir: %w", err)
	}
	return &Tabulator{logger: logger, tempDir: tempDir}, nil
}

// GetMetadata retrieves PDF page count and encryption status without
// extracting table content.
func (t *Tabulator) GetMetadata(ctx context.Context, filePath string) (*interfaces.PDFMetadata, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("pdf: stat file: %w", err)
	}

	pdfCtx, err := api.ReadContextFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("pdf: read context: %w", err)
	}

	return &interfaces.PDFMetadata{
		PageCount:   pdfCtx.PageCount,
		FileSize:    info.Size(),
		IsEncrypted: pdfCtx.Encrypt != nil,
	}, nil
}

// ExtractTables extracts each page's text content via pdfcpu and splits
// whitespace-delimited lines into table rows, treating the first
// sufficiently-wide line per page as its header row.
func (t *Tabulator) ExtractTables(ctx context.Context, filePath string) ([]interfaces.PDFTableData, error) {
	pdfCtx, err := api.ReadContextFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("pdf: read context: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir, err := os.MkdirTemp(t.tempDir, "content-*")
	if err != nil {
		return nil, fmt.Errorf("pdf: create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(filePath, outDir, nil, conf); err != nil {
		t.logger.Warn().Err(err).Str("file", filePath).Msg("pdf: content extraction failed")
		return nil, nil
	}

	pageTexts := readPageContentFiles(outDir, pageCount)

	var tables []interfaces.PDFTableData
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text, ok := pageTexts[pageNum]
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		headers, rows := linesToTable(text)
		if len(rows) == 0 {
			continue
		}
		tables = append(tables, interfaces.PDFTableData{
			PageNumber: pageNum,
			Headers:    headers,
			Rows:       rows,
		})
	}

	t.logger.Info().Int("pages", pageCount).Int("tables", len(tables)).Str("file", filePath).Msg("pdf: extracted tables")
	return tables, nil
}

// readPageContentFiles mirrors extractor.go's Content_page_N / page_N
// filename parsing.
func readPageContentFiles(dir string, pageCount int) map[int]string {
	files, _ := os.ReadDir(dir)
	pageTexts := make(map[int]string, pageCount)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
			continue
		}
		if _, err := fmt.Sscanf(file.Name(), "page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}
	return pageTexts
}

// linesToTable splits text into whitespace-delimited rows, skipping lines
// with fewer than minColumnsForRow columns, and treats the first
// qualifying line as the header row.
func linesToTable(text string) ([]string, [][]string) {
	var headers []string
	var rows [][]string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cols := columnSplitter.Split(line, -1)
		if len(cols) < minColumnsForRow {
			continue
		}
		for i, c := range cols {
			cols[i] = strings.TrimSpace(c)
		}
		if headers == nil {
			headers = cols
			continue
		}
		rows = append(rows, cols)
	}

	return headers, rows
}
