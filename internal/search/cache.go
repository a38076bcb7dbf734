package search

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// QuoteCache memoizes one-way quotes for the lifetime of a run. Absent
// results (nil quotes) are cached too. Return-leg dates recur across
// many outbound iterations, so the cache collapses a quadratic grid
// into one upstream fetch per distinct leg.
type QuoteCache struct {
	mu      sync.Mutex
	entries map[LegKey]*LegQuote
	group   singleflight.Group
}

// NewQuoteCache creates an empty cache. No expiry, no size bound; the
// grid is small and the cache dies with the run.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{entries: make(map[LegKey]*LegQuote)}
}

// GetOrFetch returns the cached quote for key, invoking fetch on the
// first request. Concurrent requests for the same key share a single
// fetch. Fetch errors are returned to every waiter and not cached.
func (c *QuoteCache) GetOrFetch(ctx context.Context, key LegKey, fetch func(ctx context.Context) (*LegQuote, error)) (*LegQuote, error) {
	c.mu.Lock()
	if q, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return q, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		c.mu.Lock()
		if q, ok := c.entries[key]; ok {
			c.mu.Unlock()
			return q, nil
		}
		c.mu.Unlock()

		q, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = q
		c.mu.Unlock()
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*LegQuote), nil
}

// Len returns the number of cached legs.
func (c *QuoteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
