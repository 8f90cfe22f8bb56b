// Package tabledetect finds and scores HTML tables in a page's static
// markup that may contain mandi price data, grounded on original_source's
// table_detector.py, re-expressed over a static HTML snippet via goquery
// instead of a live Playwright DOM.
package tabledetect

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/mandi-agent/internal/models"
)

// priceColumnKeywords are checked against lowercased column headers, per
// original_source's _PRICE_COLUMN_KEYWORDS.
var priceColumnKeywords = []string{
	"price", "rate", "modal", "min", "max",
	"commodity", "crop", "variety",
	"mandi", "market", "apmc",
	"state", "district",
	"arrival", "quantity",
	"date", "unit",
}

const (
	minRowCount    = 2
	minHeaderCount = 3
	sampleRowLimit = 3
	cellTextMaxLen = 100
)

// DetectTables enumerates every <table> element in html, skips tiny
// navigation/layout tables (fewer than 2 rows or 3 header cells), and
// returns the rest as scored TableCandidates sorted descending by score.
func DetectTables(html, pageURL string) ([]models.TableCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("tabledetect: parse html: %w", err)
	}

	var candidates []models.TableCandidate

	doc.Find("table").Each(func(idx int, table *goquery.Selection) {
		headers := extractHeaders(table)
		rowCount := table.Find("tbody tr, tr").Length()

		if rowCount < minRowCount || len(headers) < minHeaderCount {
			return
		}

		score := scoreTable(headers, rowCount)
		rows := extractSampleRows(table, headers)

		candidates = append(candidates, models.TableCandidate{
			PageURL:    pageURL,
			Selector:   tableSelector(table, idx),
			Headers:    headers,
			RowCount:   rowCount,
			Score:      score,
			SampleRows: rows,
		})
	})

	sortByScoreDesc(candidates)
	return candidates, nil
}

// extractHeaders mirrors the teacher's DOM query order: thead th/td cells
// first, falling back to the first row's th/td cells if thead is absent.
func extractHeaders(table *goquery.Selection) []string {
	var headers []string

	theadCells := table.Find("thead th, thead td")
	if theadCells.Length() > 0 {
		theadCells.Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(cell.Text()))
		})
		return headers
	}

	firstRow := table.Find("tr").First()
	firstRow.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(cell.Text()))
	})
	return headers
}

// extractSampleRows returns up to sampleRowLimit data rows, each keyed by
// its column header (falling back to a positional "col_N" key when there
// are more cells than headers), with cell text truncated to cellTextMaxLen
// characters — the map shape AI-context sampling expects.
func extractSampleRows(table *goquery.Selection, headers []string) []map[string]any {
	var rows []map[string]any
	rowSel := table.Find("tbody tr, tr")

	rowSel.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if len(rows) >= sampleRowLimit {
			return false
		}
		if row.Find("td").Length() == 0 {
			return true // header-only row
		}
		cellIdx := 0
		rowMap := make(map[string]any)
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			text := strings.TrimSpace(cell.Text())
			if len(text) > cellTextMaxLen {
				text = text[:cellTextMaxLen]
			}
			key := fmt.Sprintf("col_%d", cellIdx)
			if cellIdx < len(headers) && headers[cellIdx] != "" {
				key = headers[cellIdx]
			}
			rowMap[key] = text
			cellIdx++
		})
		rows = append(rows, rowMap)
		return true
	})
	return rows
}

// tableSelector builds a stable CSS selector for a table: #id, .firstClass,
// or an nth-of-type positional fallback, matching the teacher's ordering.
func tableSelector(table *goquery.Selection, idx int) string {
	if id, ok := table.Attr("id"); ok && id != "" {
		return "table#" + id
	}
	if class, ok := table.Attr("class"); ok && class != "" {
		first := strings.Fields(class)
		if len(first) > 0 {
			return "table." + first[0]
		}
	}
	return fmt.Sprintf("table:nth-of-type(%d)", idx+1)
}

// scoreTable scores 0..1 how likely a table holds mandi price data:
// header-keyword match ratio (up to 0.6), row-count bonus (up to 0.2),
// column-count sweet-spot bonus (up to 0.1), and a combined price+entity
// column bonus (0.1), per original_source's _score_table.
func scoreTable(headers []string, rowCount int) float64 {
	score := 0.0

	matched := 0
	for _, header := range headers {
		lower := strings.ToLower(header)
		for _, kw := range priceColumnKeywords {
			if strings.Contains(lower, kw) {
				matched++
				break
			}
		}
	}
	if len(headers) > 0 {
		score += (float64(matched) / float64(len(headers))) * 0.6
	}

	switch {
	case rowCount >= 10:
		score += 0.2
	case rowCount >= 5:
		score += 0.1
	}

	colCount := len(headers)
	switch {
	case colCount >= 5 && colCount <= 15:
		score += 0.1
	case colCount > 15:
		score += 0.05
	}

	headerText := strings.ToLower(strings.Join(headers, " "))
	hasPrice := strings.Contains(headerText, "price") || strings.Contains(headerText, "rate") || strings.Contains(headerText, "modal")
	hasEntity := strings.Contains(headerText, "commodity") || strings.Contains(headerText, "crop") || strings.Contains(headerText, "mandi") || strings.Contains(headerText, "market")
	if hasPrice && hasEntity {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// sortByScoreDesc stably sorts candidates by score descending using the
// same hand-rolled insertion sort idiom as models.DiscoveryResult, rather
// than reaching for sort.Slice.
func sortByScoreDesc(candidates []models.TableCandidate) {
	for i := 1; i < len(candidates); i++ {
		j := i
		for j > 0 && candidates[j-1].Score < candidates[j].Score {
			candidates[j-1], candidates[j] = candidates[j], candidates[j-1]
			j--
		}
	}
}
