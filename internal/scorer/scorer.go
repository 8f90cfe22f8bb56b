// Package scorer assigns a crawl priority level to a URL by keyword
// matching against its path and query string (spec.md §4.1, C3).
package scorer

import (
	"net/url"
	"strings"
)

// Level0Keywords are critical keywords — URLs matching these are scored 0
// (highest priority).
var Level0Keywords = []string{
	"api", "mandi", "price", "rate", "report", "commodity", "market",
	"apmc", "agmarknet", "arrivals",
}

// Level1Keywords are high-probability keywords — scored 1.
var Level1Keywords = []string{
	"market-watch", "daily", "bulletin", "rates-today", "today", "current",
	"latest", "live", "wholesale", "retail",
}

// Level3Keywords are deep-crawl keywords — scored 3 (lowest priority).
var Level3Keywords = []string{
	"archive", "download", "old", "history", "previous", "past", "annual",
	"yearly",
}

// ScoreURL returns the crawl priority level (0-3) for a URL: 0 = critical,
// 1 = high probability, 2 = normal internal link (default), 3 = deep crawl.
func ScoreURL(raw string) int {
	level, _ := ScoreURLWithDetails(raw)
	return level
}

// ScoreURLWithDetails is the supplemented debug variant (grounded on
// original_source's score_url_with_details): it returns the level plus the
// keywords that matched, without changing ScoreURL's contract.
func ScoreURLWithDetails(raw string) (level int, matched []string) {
	text := searchText(raw)
	level = 2

	for _, kw := range Level0Keywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
			level = 0
		}
	}
	if level > 0 {
		for _, kw := range Level1Keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, kw)
				if level > 1 {
					level = 1
				}
			}
		}
	}
	if level > 1 {
		for _, kw := range Level3Keywords {
			if strings.Contains(text, kw) {
				matched = append(matched, kw)
				level = 3
			}
		}
	}

	return level, matched
}

func searchText(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return strings.ToLower(u.Path + " " + u.RawQuery)
}
