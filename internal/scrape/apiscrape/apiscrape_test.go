package apiscrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/models"
	"github.com/ternarybob/mandi-agent/internal/runctx"
)

func testRunContext() *runctx.RunContext {
	return runctx.New(nil, arbor.NewLogger(), "src_test", "https://example.com")
}

func TestScrape_SinglePageNoPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"commodity":"Wheat"},{"commodity":"Rice"}]}`))
	}))
	defer server.Close()

	scraper := New(arbor.NewLogger())
	records, err := scraper.Scrape(context.Background(), testRunContext(), models.APIConfig{
		Endpoint: server.URL,
		Method:   "GET",
		Paginate: false,
	}, 0)

	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestScrape_PaginatesUntilShortPage(t *testing.T) {
	var requestCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.Header().Set("Content-Type", "application/json")
		page := r.URL.Query().Get("page")
		if page == "1" {
			records := make([]map[string]string, defaultPageSize)
			for i := range records {
				records[i] = map[string]string{"commodity": "Wheat"}
			}
			_ = writeJSONArray(w, records)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"commodity":"Rice"}]}`))
	}))
	defer server.Close()

	scraper := New(arbor.NewLogger())
	records, err := scraper.Scrape(context.Background(), testRunContext(), models.APIConfig{
		Endpoint: server.URL,
		Method:   "GET",
		Paginate: true,
	}, time.Millisecond)

	require.NoError(t, err)
	assert.Len(t, records, defaultPageSize+1)
	assert.Equal(t, 2, requestCount)
}

func TestScrape_StopsOnEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	scraper := New(arbor.NewLogger())
	records, err := scraper.Scrape(context.Background(), testRunContext(), models.APIConfig{
		Endpoint: server.URL,
		Method:   "GET",
		Paginate: true,
	}, 0)

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestScrape_RecordsErrorOnNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	rc := testRunContext()
	scraper := New(arbor.NewLogger())
	records, err := scraper.Scrape(context.Background(), rc, models.APIConfig{
		Endpoint: server.URL,
		Method:   "GET",
		Paginate: false,
	}, 0)

	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, rc.Errors, 1)
}

func TestScrape_PostsFormEncodedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"commodity":"Onion"}]}`))
	}))
	defer server.Close()

	scraper := New(arbor.NewLogger())
	records, err := scraper.Scrape(context.Background(), testRunContext(), models.APIConfig{
		Endpoint:        server.URL,
		Method:          "POST",
		PostContentType: "form",
		Paginate:        false,
	}, 0)

	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestScrape_OffsetModeInjectsComputedOffset(t *testing.T) {
	var offsets []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offsets = append(offsets, r.URL.Query().Get("offset"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") == "0" {
			records := make([]map[string]string, defaultPageSize)
			for i := range records {
				records[i] = map[string]string{"commodity": "Wheat"}
			}
			_ = writeJSONArray(w, records)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"commodity":"Rice"}]}`))
	}))
	defer server.Close()

	scraper := New(arbor.NewLogger())
	records, err := scraper.Scrape(context.Background(), testRunContext(), models.APIConfig{
		Endpoint:       server.URL,
		Method:         "GET",
		PaginationMode: models.PaginationOffset,
	}, time.Millisecond)

	require.NoError(t, err)
	assert.Len(t, records, defaultPageSize+1)
	require.Len(t, offsets, 2)
	assert.Equal(t, "0", offsets[0])
	assert.Equal(t, strconv.Itoa(defaultPageSize), offsets[1])
}

func TestScrape_NoneModeNeverInjectsPaginationParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("page"))
		assert.Empty(t, r.URL.Query().Get("offset"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"commodity":"Onion"}]}`))
	}))
	defer server.Close()

	scraper := New(arbor.NewLogger())
	_, err := scraper.Scrape(context.Background(), testRunContext(), models.APIConfig{
		Endpoint:       server.URL,
		Method:         "GET",
		Paginate:       true, // PaginationMode explicitly wins over the legacy bool
		PaginationMode: models.PaginationNone,
	}, 0)

	require.NoError(t, err)
}

func writeJSONArray(w http.ResponseWriter, records []map[string]string) error {
	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write([]byte(toJSONWrapped(records)))
	return err
}

func toJSONWrapped(records []map[string]string) string {
	out := `{"data":[`
	for i, r := range records {
		if i > 0 {
			out += ","
		}
		out += `{"commodity":"` + r["commodity"] + `"}`
	}
	out += `]}`
	return out
}
