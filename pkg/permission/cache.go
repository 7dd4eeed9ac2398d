package permission

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// VectorCache memoizes resolved action vectors per route. Screens check
// the same handful of routes on every render, so a small LRU in front of
// ResolveVector avoids rescanning the permission list. The cache must be
// purged whenever the underlying permission set changes (context switch,
// bulk-edit save); the tenant manager owns that invalidation.
type VectorCache struct {
	cache  *lru.LRU[string, ActionVector]
	hits   atomic.Int64
	misses atomic.Int64
}

// DefaultVectorCacheSize bounds the number of memoized routes. Admin menus
// top out well under this.
const DefaultVectorCacheSize = 512

// NewVectorCache creates a cache holding up to size routes, each entry
// expiring after ttl. size <= 0 falls back to DefaultVectorCacheSize;
// ttl 0 disables time-based expiry.
func NewVectorCache(size int, ttl time.Duration) *VectorCache {
	if size <= 0 {
		size = DefaultVectorCacheSize
	}
	return &VectorCache{
		cache: lru.NewLRU[string, ActionVector](size, nil, ttl),
	}
}

// Resolve returns the cached vector for route, computing and storing it
// on a miss.
func (c *VectorCache) Resolve(route string, perms []Permission) ActionVector {
	if v, ok := c.cache.Get(route); ok {
		c.hits.Add(1)
		return v
	}
	c.misses.Add(1)
	v := ResolveVector(route, perms)
	c.cache.Add(route, v)
	return v
}

// Purge drops every cached vector. Called on every context switch.
func (c *VectorCache) Purge() {
	c.cache.Purge()
}

// Stats returns lifetime hit/miss counters.
func (c *VectorCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached routes.
func (c *VectorCache) Len() int {
	return c.cache.Len()
}
