package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/path", NormalizeURL("https://EXAMPLE.com/path/"))
	assert.Equal(t, "https://example.com/", NormalizeURL("https://example.com"))
	assert.Equal(t, "http://example.com:8080/", NormalizeURL("http://example.com:8080/"))
	assert.Equal(t, "http://example.com/", NormalizeURL("http://example.com:80/"))
	assert.Equal(t, "https://example.com/?a=1&b=2", NormalizeURL("https://example.com/?b=2&a=1"))
}

func TestExtractBaseURL(t *testing.T) {
	assert.Equal(t, "https://agmarknet.gov.in", ExtractBaseURL("https://agmarknet.gov.in/foo/bar"))
}

func TestGetRootDomain(t *testing.T) {
	assert.Equal(t, "gov.in", GetRootDomain("https://data.agmarknet.gov.in/path"))
	assert.Equal(t, "example.com", GetRootDomain("https://example.com"))
}

func TestIsInternalLink(t *testing.T) {
	assert.True(t, IsInternalLink("/prices", "https://example.com/page"))
	assert.True(t, IsInternalLink("https://data.example.com/prices", "https://example.com/page"))
	assert.False(t, IsInternalLink("https://other.org/page", "https://example.com/page"))
	assert.False(t, IsInternalLink("", "https://example.com"))
}

func TestIsDownloadable(t *testing.T) {
	assert.True(t, IsDownloadable("https://example.com/data.pdf"))
	assert.True(t, IsDownloadable("https://example.com/report.XLSX"))
	assert.False(t, IsDownloadable("https://example.com/page.html"))
}

func TestResolveURL(t *testing.T) {
	assert.Equal(t, "https://example.com/prices", ResolveURL("/prices", "https://example.com/page"))
}

func TestStripQueryParams(t *testing.T) {
	assert.Equal(t, "https://example.com/page", StripQueryParams("https://example.com/page?a=1#frag"))
}
