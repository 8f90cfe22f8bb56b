package filescrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/interfaces"
	"github.com/ternarybob/mandi-agent/internal/runctx"
)

func testRunContext() *runctx.RunContext {
	return runctx.New(nil, arbor.NewLogger(), "src_test", "https://example.com")
}

type stubPDFTabulator struct {
	tables []interfaces.PDFTableData
	err    error
}

func (s *stubPDFTabulator) ExtractTables(ctx context.Context, filePath string) ([]interfaces.PDFTableData, error) {
	return s.tables, s.err
}

func (s *stubPDFTabulator) GetMetadata(ctx context.Context, filePath string) (*interfaces.PDFMetadata, error) {
	return &interfaces.PDFMetadata{}, nil
}

type stubSpreadsheetTabulator struct {
	sheets []interfaces.SpreadsheetTableData
	err    error
}

func (s *stubSpreadsheetTabulator) ExtractTables(ctx context.Context, filePath string) ([]interfaces.SpreadsheetTableData, error) {
	return s.sheets, s.err
}

func TestDetectFileType_FromExtension(t *testing.T) {
	assert.Equal(t, "pdf", detectFileType("https://example.com/report.PDF"))
	assert.Equal(t, "excel", detectFileType("https://example.com/data.xlsx"))
	assert.Equal(t, "csv", detectFileType("https://example.com/data.csv"))
	assert.Equal(t, "", detectFileType("https://example.com/page.html"))
}

func TestScrape_ExtractsCSV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("commodity,price\nWheat,2100\nRice,3200\n"))
	}))
	defer server.Close()

	scraper := New(nil, nil, arbor.NewLogger())
	records, err := scraper.Scrape(context.Background(), testRunContext(), server.URL+"/prices.csv", "")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2100", records[0]["price"])
}

func TestScrape_ExtractsCSVWithQuotedCommaInField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("commodity,arrival,price\nWheat,\"2,500\",2100\n"))
	}))
	defer server.Close()

	scraper := New(nil, nil, arbor.NewLogger())
	records, err := scraper.Scrape(context.Background(), testRunContext(), server.URL+"/prices.csv", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2,500", records[0]["arrival"])
	assert.Equal(t, "2100", records[0]["price"])
}

func TestScrape_ExtractsPDFViaTabulator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-fake"))
	}))
	defer server.Close()

	pdf := &stubPDFTabulator{tables: []interfaces.PDFTableData{
		{PageNumber: 1, Headers: []string{"Commodity", "Price"}, Rows: [][]string{{"Wheat", "2100"}}},
	}}
	scraper := New(pdf, nil, arbor.NewLogger())
	records, err := scraper.Scrape(context.Background(), testRunContext(), server.URL+"/report.pdf", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2100", records[0]["Price"])
}

func TestScrape_NoPDFTabulatorConfigured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-fake"))
	}))
	defer server.Close()

	rc := testRunContext()
	scraper := New(nil, nil, arbor.NewLogger())
	records, err := scraper.Scrape(context.Background(), rc, server.URL+"/report.pdf", "")
	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, rc.Errors, 1)
}

func TestScrape_UnknownFileTypeRecordsError(t *testing.T) {
	rc := testRunContext()
	scraper := New(nil, nil, arbor.NewLogger())
	records, err := scraper.Scrape(context.Background(), rc, "https://example.com/weird", "")
	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, rc.Errors, 1)
}
