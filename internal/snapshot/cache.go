package snapshot

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// listCacheSize bounds the number of distinct filter shapes cached per
// handle; in practice a single service rarely sees more than a handful of
// distinct filters.
const listCacheSize = 32

// listTTL is the cache lifetime for list(filter) results (spec.md §4.7).
const listTTL = 5 * time.Minute

type listCacheEntry struct {
	snapshots []Snapshot
	cachedAt  time.Time
}

// listCache caches list() results per filter key with a 5-minute TTL,
// invalidated wholesale on any write through the same handle. Bounded via
// an LRU so a pathological number of distinct filters can't grow it
// unboundedly; TTL expiry is checked on Get since the underlying cache has
// no native expiry.
type listCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, listCacheEntry]
}

func newListCache() *listCache {
	c, _ := lru.New[string, listCacheEntry](listCacheSize)
	return &listCache{cache: c}
}

func (c *listCache) get(key string) ([]Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	if time.Since(entry.cachedAt) > listTTL {
		c.cache.Remove(key)
		return nil, false
	}
	return entry.snapshots, true
}

func (c *listCache) set(key string, snapshots []Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, listCacheEntry{snapshots: snapshots, cachedAt: time.Now()})
}

// invalidate clears every cached filter result. Only Forget calls it; a
// backup does not, so a cached list can miss a new snapshot until the
// entry expires.
func (c *listCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Purge()
}
