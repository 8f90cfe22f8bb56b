// Package pqueue implements the 4-level priority queue the discovery
// engine (C9) pops URLs from, per spec.md §4.2 (C4).
package pqueue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/ternarybob/mandi-agent/internal/models"
	"github.com/ternarybob/mandi-agent/internal/urlutil"
)

// URLQueue is a level-only min-heap with a visited-URL dedup set and a
// depth cap. Ordering is strictly level-ascending; ties are broken by
// insertion order (Open Question 1 in spec §9: first-sighting-wins for
// de-dup, stable FIFO within a level).
type URLQueue struct {
	items    *itemHeap
	seen     map[string]bool
	mu       sync.Mutex
	cond     *sync.Cond
	closed   bool
	maxDepth int
	nextSeq  int64

	totalEnqueued int
	totalVisited  int
	maxDepthHit   int
}

type itemHeap []models.QueueItem

func (h itemHeap) Len() int { return len(h) }

func (h itemHeap) Less(i, j int) bool {
	if h[i].Level != h[j].Level {
		return h[i].Level < h[j].Level
	}
	return h[i].Seq < h[j].Seq
}

func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *itemHeap) Push(x interface{}) {
	*h = append(*h, x.(models.QueueItem))
}

func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// New creates a new URLQueue with the given max crawl depth.
func New(maxDepth int) *URLQueue {
	h := &itemHeap{}
	heap.Init(h)
	q := &URLQueue{
		items:    h,
		seen:     make(map[string]bool),
		maxDepth: maxDepth,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds a URL to the queue, scored at the given level, at the given
// depth, with the given parent URL. Returns false (without modifying the
// queue) if the URL was already seen or if depth exceeds the max depth cap
// — duplicate pushes never change queue size, per spec §8's quantified
// invariant.
func (q *URLQueue) Push(url string, level, depth int, parentURL string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if depth > q.maxDepth {
		return false
	}

	normalized := urlutil.NormalizeURL(url)
	if q.seen[normalized] {
		return false
	}

	q.seen[normalized] = true
	item := models.QueueItem{URL: url, Level: level, Depth: depth, ParentURL: parentURL, Seq: q.nextSeq}
	q.nextSeq++
	heap.Push(q.items, item)
	q.totalEnqueued++
	if depth > q.maxDepthHit {
		q.maxDepthHit = depth
	}
	q.cond.Signal()
	return true
}

// Pop removes and returns the lowest-level (highest priority) item,
// blocking until one is available, the queue closes, or ctx is cancelled.
// Returns (item, true, nil) on success, (zero, false, nil) if the queue
// closed with nothing left, or (zero, false, err) on context cancellation.
func (q *URLQueue) Pop(ctx context.Context) (models.QueueItem, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	const maxWaitTimeout = 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return models.QueueItem{}, false, ctx.Err()
		default:
		}

		if q.items.Len() > 0 {
			item := heap.Pop(q.items).(models.QueueItem)
			q.totalVisited++
			return item, true, nil
		}

		if q.closed {
			return models.QueueItem{}, false, nil
		}

		timer := time.AfterFunc(maxWaitTimeout, func() {
			q.cond.Broadcast()
		})
		q.cond.Wait()
		timer.Stop()
	}
}

// Len returns the number of items currently queued.
func (q *URLQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Close closes the queue and wakes all waiting Pop calls.
func (q *URLQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Seen reports whether a URL (after normalization) has already been pushed.
func (q *URLQueue) Seen(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seen[urlutil.NormalizeURL(url)]
}

// Stats returns the queue's running totals for DiscoveryResult.
func (q *URLQueue) Stats() models.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return models.QueueStats{
		TotalEnqueued: q.totalEnqueued,
		TotalVisited:  q.totalVisited,
		MaxDepthHit:   q.maxDepthHit,
	}
}
