package nyx

import (
	"sync"
	"sync/atomic"

	"github.com/hartmut/nyx/internal/metrics"
)

// cacheKey identifies one query result by endpoint ids and the
// epoch's TDB coordinate, so the same instant hits regardless of the
// scale label it was requested under.
type cacheKey struct {
	kind uint8 // 1 = state, 2 = transform
	a, b int
	et   float64
}

// resultCache is a bounded map of finished query results. Any load or
// unload invalidates it wholesale; segment selection depends on the
// full set of loaded kernels, so partial invalidation is not safe.
type resultCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]any
	cap     int

	hits   atomic.Int64
	misses atomic.Int64
}

func newResultCache(capacity int) *resultCache {
	return &resultCache{
		entries: make(map[cacheKey]any),
		cap:     capacity,
	}
}

func (c *resultCache) enabled() bool {
	return c.cap > 0
}

func (c *resultCache) get(key cacheKey) (any, bool) {
	if !c.enabled() {
		return nil, false
	}
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return v, true
	}
	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil, false
}

func (c *resultCache) put(key cacheKey, v any) {
	if !c.enabled() {
		return
	}
	c.mu.Lock()
	if len(c.entries) >= c.cap {
		// Evict an arbitrary entry; queries cluster on few epochs, so
		// anything resembling LRU buys little here.
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = v
	n := len(c.entries)
	c.mu.Unlock()

	metrics.SetCacheEntries(n)
}

// invalidate drops every entry.
func (c *resultCache) invalidate() {
	if !c.enabled() {
		return
	}
	c.mu.Lock()
	c.entries = make(map[cacheKey]any)
	c.mu.Unlock()

	metrics.SetCacheEntries(0)
}

// CacheStats reports result cache counters.
type CacheStats struct {
	Entries int
	Hits    int64
	Misses  int64
}

func (c *resultCache) stats() CacheStats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return CacheStats{
		Entries: n,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}
