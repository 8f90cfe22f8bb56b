package pqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPush_DuplicateReturnsFalse(t *testing.T) {
	q := New(5)
	assert.True(t, q.Push("https://example.com/a", 2, 0, ""))
	sizeBefore := q.Len()
	assert.False(t, q.Push("https://example.com/a", 0, 0, ""))
	assert.Equal(t, sizeBefore, q.Len())
}

func TestPush_DepthCap(t *testing.T) {
	q := New(2)
	assert.False(t, q.Push("https://example.com/deep", 0, 3, ""))
	assert.Equal(t, 0, q.Len())
}

func TestPop_OrderNonDecreasingByLevel(t *testing.T) {
	q := New(5)
	q.Push("https://example.com/l2", 2, 0, "")
	q.Push("https://example.com/l0", 0, 0, "")
	q.Push("https://example.com/l3", 3, 0, "")

	ctx := context.Background()
	var levels []int
	for i := 0; i < 3; i++ {
		item, ok, err := q.Pop(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		levels = append(levels, item.Level)
	}
	assert.Equal(t, []int{0, 2, 3}, levels)
}

func TestPop_StableWithinLevel(t *testing.T) {
	q := New(5)
	q.Push("https://example.com/first", 1, 0, "")
	q.Push("https://example.com/second", 1, 0, "")

	ctx := context.Background()
	first, _, _ := q.Pop(ctx)
	second, _, _ := q.Pop(ctx)
	assert.Equal(t, "https://example.com/first", first.URL)
	assert.Equal(t, "https://example.com/second", second.URL)
}

func TestPop_ClosedReturnsFalse(t *testing.T) {
	q := New(5)
	q.Close()
	item, ok, err := q.Pop(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", item.URL)
}

func TestPop_ContextCancellation(t *testing.T) {
	q := New(5)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok, err := q.Pop(ctx)
	assert.False(t, ok)
	assert.Error(t, err)
}
