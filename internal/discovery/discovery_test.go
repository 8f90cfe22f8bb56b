package discovery

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/mandi-agent/internal/browserdrv"
	"github.com/ternarybob/mandi-agent/internal/runctx"
)

func testRunContext() *runctx.RunContext {
	return runctx.New(nil, nil, "src_test", "https://example.com")
}

type fakeNavigator struct {
	pages map[string]*browserdrv.NavResult
}

func (f *fakeNavigator) Navigate(ctx context.Context, url string) (*browserdrv.NavResult, error) {
	if r, ok := f.pages[url]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("no fake page for %s", url)
}

func (f *fakeNavigator) AttachSniffer(s browserdrv.ResponseSniffer) {}
func (f *fakeNavigator) DetachSniffer()                             {}

func TestRun_VisitsEntryAndLinkedPages(t *testing.T) {
	nav := &fakeNavigator{
		pages: map[string]*browserdrv.NavResult{
			"https://example.com/mandi": {
				URL:   "https://example.com/mandi",
				Title: "Mandi Prices",
				Links: []browserdrv.Link{
					{URL: "https://example.com/mandi/daily", Text: "Daily"},
				},
				HTMLSnippet: `<table id="p"><thead><tr><th>Commodity</th><th>Mandi</th><th>Price</th></tr></thead><tbody><tr><td>a</td><td>b</td><td>c</td></tr><tr><td>a</td><td>b</td><td>c</td></tr></tbody></table>`,
			},
			"https://example.com/mandi/daily": {
				URL:   "https://example.com/mandi/daily",
				Title: "Daily Bulletin",
			},
		},
	}

	eng := New(nav)
	rc := testRunContext()
	result := eng.Run(context.Background(), rc, "https://example.com/mandi", 10, 0)

	assert.Len(t, result.VisitedPages, 2)
	assert.Len(t, rc.VisitedURLs, 2)
	require.Len(t, result.TableCandidates, 1)
}

func TestRun_RecordsNavigationErrorsWithoutAborting(t *testing.T) {
	nav := &fakeNavigator{pages: map[string]*browserdrv.NavResult{}}
	eng := New(nav)
	rc := testRunContext()

	result := eng.Run(context.Background(), rc, "https://example.com/missing", 10, 0)
	assert.Empty(t, result.VisitedPages)
	assert.NotEmpty(t, rc.Errors)
	assert.False(t, rc.Errors[0].Fatal)
}

func TestRun_RespectsMaxPages(t *testing.T) {
	nav := &fakeNavigator{
		pages: map[string]*browserdrv.NavResult{
			"https://example.com/a": {
				URL: "https://example.com/a",
				Links: []browserdrv.Link{
					{URL: "https://example.com/b", Text: "b"},
				},
			},
			"https://example.com/b": {URL: "https://example.com/b"},
		},
	}
	eng := New(nav)
	rc := testRunContext()

	result := eng.Run(context.Background(), rc, "https://example.com/a", 1, 0)
	assert.Len(t, result.VisitedPages, 1)
}
