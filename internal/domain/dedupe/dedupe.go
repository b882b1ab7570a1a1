// Package dedupe tracks event IDs already accepted so that a retried
// submission is ingested at most once.
package dedupe

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMaxSize = 50000

// Deduper records seen event IDs to ensure at-most-once ingestion.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a submission that was rejected after being
	// recorded (for example on queue backpressure) can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps the most recently recorded IDs in an LRU cache.
// With a non-positive max size it degrades to an unbounded set.
type inMemoryDeduper struct {
	maxSize int
	onEvict func()

	cache *lru.Cache[string, struct{}]

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}

	if d.maxSize <= 0 {
		d.seen = make(map[string]struct{})
		return d
	}

	// lru.New only fails for a non-positive size.
	d.cache, _ = lru.New[string, struct{}](d.maxSize)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	if d.cache != nil {
		seen, evicted := d.cache.ContainsOrAdd(id, struct{}{})
		if evicted && d.onEvict != nil {
			d.onEvict()
		}
		return seen
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	if d.cache != nil {
		d.cache.Remove(id)
		return
	}

	d.mu.Lock()
	delete(d.seen, id)
	d.mu.Unlock()
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	if d.cache != nil {
		return int64(d.cache.Len())
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
