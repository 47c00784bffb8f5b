package fingerprint

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the vendor cache when no size is configured.
const DefaultCacheSize = 1024

// OUICache is an LRU cache for OUI lookups keyed by "XX:XX:XX" prefix.
type OUICache struct {
	entries *lru.Cache[string, string]
	hits    atomic.Int64
	misses  atomic.Int64
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Size   int
	Hits   int64
	Misses int64
}

// NewOUICache creates a new LRU cache with the specified capacity
func NewOUICache(capacity int) *OUICache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	// lru.New only fails on a non-positive size.
	entries, _ := lru.New[string, string](capacity)
	return &OUICache{entries: entries}
}

// Get retrieves a value from the cache
func (c *OUICache) Get(key string) (string, bool) {
	v, ok := c.entries.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Set adds or updates a value in the cache
func (c *OUICache) Set(key, value string) {
	c.entries.Add(key, value)
}

// Len returns the current number of items in the cache
func (c *OUICache) Len() int {
	return c.entries.Len()
}

func (c *OUICache) Stats() CacheStats {
	return CacheStats{Size: c.entries.Len(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Clear removes all items from the cache
func (c *OUICache) Clear() {
	c.entries.Purge()
}
