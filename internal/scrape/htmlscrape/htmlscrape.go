// Package htmlscrape fetches a page and extracts one HTML table as a list
// of header-keyed row maps, grounded on
// original_source/scraper/app/scraping/html_scraper.py.
package htmlscrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/runctx"
)

const requestTimeout = 30 * time.Second

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Scraper fetches a page over plain net/http and parses its tables with
// goquery — pandas.read_html has no direct Go equivalent in the pack, so
// row/cell extraction is done manually via goquery traversal (grounded on
// quaero's link_extractor.go goquery idiom).
type Scraper struct {
	client *http.Client
	logger arbor.ILogger
}

func New(logger arbor.ILogger) *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

// Scrape fetches pageURL and extracts the table at selector (or the
// tableIndex'th <table> on the page if selector is empty) as a list of
// header-keyed row maps.
func (s *Scraper) Scrape(ctx context.Context, rc *runctx.RunContext, pageURL, selector string, tableIndex int) ([]map[string]any, error) {
	html, err := s.fetch(ctx, pageURL)
	if err != nil {
		rc.AddError(pageURL, fmt.Sprintf("HTTP error: %v", err), false)
		return nil, nil
	}
	return ExtractTable(html, pageURL, selector, tableIndex, rc)
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ExtractTable parses html and extracts the selected table as header-keyed
// row dicts, dropping blank rows and trimming whitespace. rc may be nil
// when called outside a run context (e.g. from tests).
func ExtractTable(html, pageURL, selector string, tableIndex int, rc *runctx.RunContext) ([]map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("htmlscrape: parse html: %w", err)
	}

	var table *goquery.Selection
	if selector != "" {
		matches := doc.Find(selector)
		if matches.Length() == 0 {
			msg := fmt.Sprintf("selector %q not found on %s", selector, pageURL)
			if rc != nil {
				rc.AddError(pageURL, msg, false)
			}
			return nil, nil
		}
		table = matches.Eq(clampIndex(tableIndex, matches.Length()))
	} else {
		tables := doc.Find("table")
		if tables.Length() == 0 {
			msg := fmt.Sprintf("no tables found on %s", pageURL)
			if rc != nil {
				rc.AddError(pageURL, msg, false)
			}
			return nil, nil
		}
		table = tables.Eq(clampIndex(tableIndex, tables.Length()))
	}

	headers := extractHeaders(table)
	if len(headers) == 0 {
		return nil, nil
	}

	var records []map[string]any
	table.Find("tbody tr, tr").Each(func(_ int, row *goquery.Selection) {
		if row.Find("th").Length() > 0 && row.Find("td").Length() == 0 {
			return
		}
		record := extractRow(row, headers)
		if record == nil {
			return
		}
		records = append(records, record)
	})

	return records, nil
}

func clampIndex(idx, length int) int {
	if idx < 0 {
		return 0
	}
	if idx >= length {
		return length - 1
	}
	return idx
}

func extractHeaders(table *goquery.Selection) []string {
	var headers []string
	headerRow := table.Find("thead tr").First()
	if headerRow.Length() == 0 {
		headerRow = table.Find("tr").First()
	}
	headerRow.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(cell.Text()))
	})
	return headers
}

func extractRow(row *goquery.Selection, headers []string) map[string]any {
	var cells []string
	row.Find("td").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(cell.Text()))
	})
	if len(cells) == 0 {
		return nil
	}

	allBlank := true
	for _, c := range cells {
		if c != "" {
			allBlank = false
			break
		}
	}
	if allBlank {
		return nil
	}

	record := make(map[string]any, len(cells))
	for i, cell := range cells {
		key := fmt.Sprintf("col_%d", i)
		if i < len(headers) && headers[i] != "" {
			key = headers[i]
		}
		record[key] = cell
	}
	return record
}
