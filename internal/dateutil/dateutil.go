// Package dateutil parses the date formats observed across Indian mandi
// portals and emits the canonical ISO form (spec.md §2/§6, C2).
package dateutil

import (
	"strings"
	"time"
)

// supportedFormats is the exact ordered list spec.md §6 names, using Go's
// reference-time layout syntax.
var supportedFormats = []string{
	"02-01-2006",
	"02/01/2006",
	"02-Jan-2006",
	"02 Jan 2006",
	"2006-01-02",
	"02.01.2006",
	"02-01-06",
	"02/01/06",
}

// ParseDate tries each supported format in order, then falls back to
// ISO 8601 (RFC3339 and bare date). Returns the zero time and false if no
// format matches.
func ParseDate(value string) (time.Time, bool) {
	text := strings.TrimSpace(value)
	if text == "" {
		return time.Time{}, false
	}

	for _, layout := range supportedFormats {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC(), true
		}
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02T15:04:05", text); err == nil {
		return t.UTC(), true
	}

	return time.Time{}, false
}

// ToISOString formats a time as YYYY-MM-DD. Returns "" for the zero time.
func ToISOString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// TodayISO returns today's date (UTC) as an ISO string.
func TodayISO() string {
	return time.Now().UTC().Format("2006-01-02")
}

// IsRecent reports whether t is within the last `hours` hours of now.
// Nothing in the pipeline calls it; the health model does not look at
// recency (spec §9 Open Question: STALE is a single state).
func IsRecent(t time.Time, hours int) bool {
	return time.Since(t) < time.Duration(hours)*time.Hour
}

// FormatDate formats a time using the given Go reference layout, defaulting
// to Indian DD-MM-YYYY display format when layout is empty.
func FormatDate(t time.Time, layout string) string {
	if layout == "" {
		layout = "02-01-2006"
	}
	return t.Format(layout)
}
