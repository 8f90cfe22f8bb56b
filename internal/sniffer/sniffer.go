// Package sniffer captures XHR/fetch network responses observed during a
// browserdrv navigation and scores them as potential mandi-price API
// endpoints, grounded on original_source's NetworkSniffer.
package sniffer

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/ternarybob/mandi-agent/internal/browserdrv"
	"github.com/ternarybob/mandi-agent/internal/jsonrecords"
	"github.com/ternarybob/mandi-agent/internal/models"
	"github.com/ternarybob/mandi-agent/internal/scorer"
)

// minAPIRecords is the minimum record count to keep a candidate regardless
// of relevance score, per original_source's MIN_API_RECORDS.
const minAPIRecords = 3

// minRelevanceScore is the minimum relevance score to keep a candidate
// regardless of record count, per original_source's retention rule.
const minRelevanceScore = 0.3

// maxSampleItems bounds how many sample records are retained per candidate.
const maxSampleItems = 3

// priceFields are checked against the response body text for relevance
// scoring, per original_source's _score_relevance.
var priceFields = []string{"price", "rate", "modal", "min", "max", "commodity", "mandi", "market", "arrival"}

// jsonContentTypes are the content-type substrings that mark a response as
// JSON, per original_source's JSON_CONTENT_TYPES.
var jsonContentTypes = []string{"application/json", "text/json"}

// Sniffer accumulates ApiCandidate observations across a single navigation.
// It implements browserdrv.ResponseSniffer.
type Sniffer struct {
	mu         sync.Mutex
	candidates []models.ApiCandidate
}

// New creates an empty Sniffer.
func New() *Sniffer {
	return &Sniffer{}
}

// OnResponse evaluates one captured network response, keeping it as an
// ApiCandidate if it looks like mandi-price JSON data.
func (s *Sniffer) OnResponse(info browserdrv.ResponseInfo) {
	if !isJSONContentType(info.MimeType) || len(info.Body) == 0 {
		return
	}

	var parsed any
	if err := json.Unmarshal(info.Body, &parsed); err != nil {
		return
	}

	recordCount := jsonrecords.Count(info.Body)
	relevance := scoreRelevance(info.URL, info.Body)

	if recordCount < minAPIRecords && relevance < minRelevanceScore {
		return
	}

	method := info.Method
	if method == "" {
		method = "GET"
	}

	candidate := models.ApiCandidate{
		URL:            info.URL,
		Method:         method,
		RequestHeaders: info.RequestHeaders,
		PostBody:       info.PostBody,
		ContentType:    info.MimeType,
		RecordCount:    recordCount,
		RelevanceScore: relevance,
		SampleData:     sample(info.Body),
	}

	s.mu.Lock()
	s.candidates = append(s.candidates, candidate)
	s.mu.Unlock()
}

// Candidates returns a snapshot of all captured candidates so far.
func (s *Sniffer) Candidates() []models.ApiCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ApiCandidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// Clear discards all captured candidates.
func (s *Sniffer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = nil
}

func isJSONContentType(mimeType string) bool {
	lower := strings.ToLower(mimeType)
	for _, ct := range jsonContentTypes {
		if strings.Contains(lower, ct) {
			return true
		}
	}
	return false
}

// scoreRelevance scores 0..1 how relevant a response is to mandi price data:
// 0.2 per matched level-0 URL keyword, 0.1 per price-like field found in the
// first 2000 characters of the (lowercased) body, clamped to 1.0.
func scoreRelevance(url string, body []byte) float64 {
	score := 0.0
	urlLower := strings.ToLower(url)

	for _, kw := range scorer.Level0Keywords {
		if strings.Contains(urlLower, kw) {
			score += 0.2
		}
	}

	bodyStr := string(body)
	if len(bodyStr) > 2000 {
		bodyStr = bodyStr[:2000]
	}
	bodyLower := strings.ToLower(bodyStr)
	for _, field := range priceFields {
		if strings.Contains(bodyLower, field) {
			score += 0.1
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// sample extracts up to maxSampleItems records from the response body for
// AI-context inclusion, reusing the same ordered-wrapper-key lookup as
// record counting.
func sample(body []byte) []map[string]any {
	records := jsonrecords.Extract(body)
	if len(records) > maxSampleItems {
		records = records[:maxSampleItems]
	}
	return records
}
