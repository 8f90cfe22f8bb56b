package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/mandi-agent/internal/browserdrv"
)

func TestOnResponse_IgnoresNonJSON(t *testing.T) {
	s := New()
	s.OnResponse(browserdrv.ResponseInfo{URL: "https://example.com/style.css", Status: 200, MimeType: "text/css", Body: []byte("body{}")})
	assert.Empty(t, s.Candidates())
}

func TestOnResponse_KeepsHighRecordCount(t *testing.T) {
	s := New()
	body := []byte(`{"data":[{"price":1},{"price":2},{"price":3},{"price":4}]}`)
	s.OnResponse(browserdrv.ResponseInfo{URL: "https://example.com/api/prices", Status: 200, MimeType: "application/json", Body: body})
	candidates := s.Candidates()
	assert.Len(t, candidates, 1)
	assert.Equal(t, 4, candidates[0].RecordCount)
}

func TestOnResponse_DropsLowCountLowRelevance(t *testing.T) {
	s := New()
	body := []byte(`{"data":[{"x":1}]}`)
	s.OnResponse(browserdrv.ResponseInfo{URL: "https://example.com/api/misc", Status: 200, MimeType: "application/json", Body: body})
	assert.Empty(t, s.Candidates())
}

func TestOnResponse_KeepsHighRelevanceDespiteLowCount(t *testing.T) {
	s := New()
	// URL matches 2 level-0 keywords (mandi, price) -> 0.4 relevance, above 0.3.
	body := []byte(`{"data":[{"x":1}]}`)
	s.OnResponse(browserdrv.ResponseInfo{URL: "https://example.com/mandi/price", Status: 200, MimeType: "application/json", Body: body})
	assert.Len(t, s.Candidates(), 1)
}

func TestScoreRelevance_ClampedAtOne(t *testing.T) {
	url := "https://example.com/api/mandi/price/rate/report/commodity/market/apmc/agmarknet/arrivals"
	body := []byte(`{"price":1,"rate":1,"modal":1,"min":1,"max":1,"commodity":1,"mandi":1,"market":1,"arrival":1}`)
	score := scoreRelevance(url, body)
	assert.Equal(t, 1.0, score)
}

func TestClear_RemovesCaptured(t *testing.T) {
	s := New()
	body := []byte(`{"data":[{"p":1},{"p":2},{"p":3}]}`)
	s.OnResponse(browserdrv.ResponseInfo{URL: "https://example.com/api/data", Status: 200, MimeType: "application/json", Body: body})
	assert.NotEmpty(t, s.Candidates())
	s.Clear()
	assert.Empty(t, s.Candidates())
}

func TestOnResponse_CapturesRealMethodHeadersAndPostBody(t *testing.T) {
	s := New()
	body := []byte(`{"data":[{"price":1},{"price":2},{"price":3}]}`)
	s.OnResponse(browserdrv.ResponseInfo{
		URL:            "https://example.com/api/prices",
		Method:         "POST",
		RequestHeaders: map[string]string{"Content-Type": "application/json", "X-Api-Key": "secret"},
		PostBody:       `{"date":"2026-07-31","state":"MH"}`,
		Status:         200,
		MimeType:       "application/json",
		Body:           body,
	})
	candidates := s.Candidates()
	require := assert.New(t)
	require.Len(candidates, 1)
	require.Equal("POST", candidates[0].Method)
	require.Equal("application/json", candidates[0].RequestHeaders["Content-Type"])
	require.Equal("secret", candidates[0].RequestHeaders["X-Api-Key"])
	require.Equal(`{"date":"2026-07-31","state":"MH"}`, candidates[0].PostBody)
}

func TestOnResponse_DefaultsMethodToGETWhenUncaptured(t *testing.T) {
	s := New()
	body := []byte(`{"data":[{"price":1},{"price":2},{"price":3}]}`)
	s.OnResponse(browserdrv.ResponseInfo{URL: "https://example.com/api/prices", MimeType: "application/json", Body: body})
	candidates := s.Candidates()
	assert.Len(t, candidates, 1)
	assert.Equal(t, "GET", candidates[0].Method)
}
