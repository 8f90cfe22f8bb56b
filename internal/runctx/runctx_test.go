package runctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddError_FatalSetsHasFatalError(t *testing.T) {
	ctx := New(nil, nil, "src_1", "https://example.com")
	assert.False(t, ctx.HasFatalError())
	ctx.AddError("https://example.com/page", "boom", true)
	assert.True(t, ctx.HasFatalError())
}

func TestMarkVisited_Accumulates(t *testing.T) {
	ctx := New(nil, nil, "src_1", "https://example.com")
	ctx.MarkVisited("https://example.com/a")
	ctx.MarkVisited("https://example.com/b")
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, ctx.VisitedURLs)
}

func TestToRunLog_SuccessWhenNoFatalErrors(t *testing.T) {
	ctx := New(nil, nil, "src_1", "https://example.com")
	ctx.AddError("https://example.com/a", "minor", false)
	log := ctx.ToRunLog()
	assert.True(t, log.Success)
	assert.False(t, log.Fatal)
	assert.Len(t, log.Errors, 1)
}

func TestToRunLog_FailureWhenFatalError(t *testing.T) {
	ctx := New(nil, nil, "src_1", "https://example.com")
	ctx.AddError("https://example.com/a", "fatal issue", true)
	log := ctx.ToRunLog()
	assert.False(t, log.Success)
	assert.True(t, log.Fatal)
}
