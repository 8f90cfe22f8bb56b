package tabledetect

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const priceTableHTML = `
<html><body>
<table id="prices">
<thead><tr><th>Commodity</th><th>Mandi</th><th>Market</th><th>Min Price</th><th>Max Price</th><th>Modal Price</th></tr></thead>
<tbody>
<tr><td>Wheat</td><td>Azadpur</td><td>Delhi</td><td>1800</td><td>2200</td><td>2000</td></tr>
<tr><td>Rice</td><td>Azadpur</td><td>Delhi</td><td>2500</td><td>3000</td><td>2800</td></tr>
<tr><td>Onion</td><td>Azadpur</td><td>Delhi</td><td>1000</td><td>1500</td><td>1200</td></tr>
</tbody>
</table>
<table>
<tr><td>Nav</td><td>Links</td></tr>
</table>
</body></html>`

func TestDetectTables_SkipsTinyTables(t *testing.T) {
	candidates, err := DetectTables(priceTableHTML, "https://example.com")
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestDetectTables_HeadersAndSelector(t *testing.T) {
	candidates, err := DetectTables(priceTableHTML, "https://example.com")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "table#prices", candidates[0].Selector)
	assert.Equal(t, []string{"Commodity", "Mandi", "Market", "Min Price", "Max Price", "Modal Price"}, candidates[0].Headers)
	assert.Equal(t, 4, candidates[0].RowCount)
}

func TestDetectTables_ScoreAboveZeroForPriceTable(t *testing.T) {
	candidates, err := DetectTables(priceTableHTML, "https://example.com")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Greater(t, candidates[0].Score, 0.5)
	assert.LessOrEqual(t, candidates[0].Score, 1.0)
}

func TestDetectTables_SortedDescending(t *testing.T) {
	html := `<table><thead><tr><th>a</th><th>b</th><th>c</th></tr></thead><tbody><tr><td>1</td><td>2</td><td>3</td></tr><tr><td>1</td><td>2</td><td>3</td></tr></tbody></table>
<table id="prices"><thead><tr><th>Commodity</th><th>Mandi</th><th>Market</th><th>Price</th></tr></thead><tbody><tr><td>x</td><td>y</td><td>z</td><td>1</td></tr><tr><td>x</td><td>y</td><td>z</td><td>1</td></tr></tbody></table>`
	candidates, err := DetectTables(html, "https://example.com")
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.GreaterOrEqual(t, candidates[0].Score, candidates[1].Score)
}

func TestDetectTables_FallsBackToFirstRowHeaders(t *testing.T) {
	html := `<table><tr><th>Commodity</th><th>Mandi</th><th>Price</th></tr><tr><td>a</td><td>b</td><td>c</td></tr><tr><td>a</td><td>b</td><td>c</td></tr></table>`
	candidates, err := DetectTables(html, "https://example.com")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, []string{"Commodity", "Mandi", "Price"}, candidates[0].Headers)
}

func TestDetectTables_InvalidHTML(t *testing.T) {
	_, err := DetectTables(strings.Repeat("<", 1), "https://example.com")
	assert.NoError(t, err)
}
