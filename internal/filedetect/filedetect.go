// Package filedetect finds anchor links to downloadable price-report files
// (PDF, Excel, CSV) on a page, grounded on original_source's
// file_detector.py, re-expressed over static HTML via goquery.
package filedetect

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/mandi-agent/internal/models"
	"github.com/ternarybob/mandi-agent/internal/scorer"
	"github.com/ternarybob/mandi-agent/internal/urlutil"
)

// downloadableExtensions, checked in order, mirrors original_source's
// DOWNLOADABLE_EXTENSIONS membership test (suffix match, or substring match
// to also catch query-stringed download links like "...file.pdf?v=2").
var downloadableExtensions = []string{".pdf", ".xlsx", ".xls", ".csv"}

// extensionScores rewards structured formats (Excel) over PDF/CSV, per
// original_source's _score_file ext_scores table.
var extensionScores = map[string]float64{
	".xlsx": 0.15,
	".xls":  0.15,
	".csv":  0.10,
	".pdf":  0.05,
}

var datePattern = regexp.MustCompile(`\d{2}[-/.]\d{2}[-/.]\d{4}`)
var recencyPattern = regexp.MustCompile(`daily|today|current|latest`)

const linkTextMaxLen = 200

// DetectFiles enumerates anchor links on a page, resolves them against
// baseURL, keeps only links whose resolved URL matches a downloadable
// extension, dedupes by resolved URL, and returns the results scored and
// sorted descending.
func DetectFiles(html, baseURL string) ([]models.FileCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var candidates []models.FileCandidate
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, exists := a.Attr("href")
		href = strings.TrimSpace(href)
		if !exists || href == "" {
			return
		}

		absolute := urlutil.ResolveURL(href, baseURL)
		if absolute == "" {
			return
		}

		extension := matchExtension(absolute)
		if extension == "" {
			return
		}
		if seen[absolute] {
			return
		}
		seen[absolute] = true

		text := strings.TrimSpace(a.Text())
		if len(text) > linkTextMaxLen {
			text = text[:linkTextMaxLen]
		}

		candidates = append(candidates, models.FileCandidate{
			PageURL:   baseURL,
			FileURL:   absolute,
			Text:      text,
			Extension: extension,
			Score:     scoreFile(absolute, text, extension),
		})
	})

	sortByScoreDesc(candidates)
	return candidates, nil
}

// matchExtension returns the first downloadable extension found as either
// a suffix or substring of the lowercased URL, or "" if none match.
func matchExtension(absoluteURL string) string {
	lower := strings.ToLower(absoluteURL)
	for _, ext := range downloadableExtensions {
		if strings.HasSuffix(lower, ext) || strings.Contains(lower, ext) {
			return ext
		}
	}
	return ""
}

// scoreFile scores 0..1 how likely a file link is a mandi price report:
// 0.15 per matched level-0 keyword in the combined URL+text, a date-pattern
// bonus, a recency-word bonus, and an extension preference bonus.
func scoreFile(fileURL, text, extension string) float64 {
	score := 0.0
	combined := strings.ToLower(fileURL + " " + text)

	for _, kw := range scorer.Level0Keywords {
		if strings.Contains(combined, kw) {
			score += 0.15
		}
	}

	if datePattern.MatchString(combined) {
		score += 0.1
	}
	if recencyPattern.MatchString(combined) {
		score += 0.1
	}

	score += extensionScores[extension]

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// sortByScoreDesc stably sorts candidates by score descending, matching the
// hand-rolled insertion-sort idiom used throughout the discovery packages
// instead of sort.Slice.
func sortByScoreDesc(candidates []models.FileCandidate) {
	for i := 1; i < len(candidates); i++ {
		j := i
		for j > 0 && candidates[j-1].Score < candidates[j].Score {
			candidates[j-1], candidates[j] = candidates[j], candidates[j-1]
			j--
		}
	}
}
