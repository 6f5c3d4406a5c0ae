package macro

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultCacheSize = 256
	// DefaultTTL bounds how long a resolved value may be served without
	// recomputation.
	DefaultTTL = 5 * time.Minute
)

type cacheEntry struct {
	value    string
	storedAt time.Time
}

// resultCache is an LRU with a TTL check on read. Expired entries are
// evicted on access so the LRU bookkeeping stays clean.
type resultCache struct {
	lru *lru.Cache[string, cacheEntry]
	ttl time.Duration
	now func() time.Time
}

func newResultCache(size int, ttl time.Duration) *resultCache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	cache, err := lru.New[string, cacheEntry](size)
	if err != nil {
		// lru.New only errors on a non-positive size, guarded above.
		panic(err)
	}
	return &resultCache{lru: cache, ttl: ttl, now: time.Now}
}

func (c *resultCache) get(key string) (string, bool) {
	entry, ok := c.lru.Get(key)
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		c.lru.Remove(key)
		return "", false
	}
	return entry.value, true
}

func (c *resultCache) add(key, value string) {
	c.lru.Add(key, cacheEntry{value: value, storedAt: c.now()})
}

func (c *resultCache) purge() {
	c.lru.Purge()
}

// invalidate removes entries whose key mentions any of the given parts.
func (c *resultCache) invalidate(parts ...string) {
	for _, key := range c.lru.Keys() {
		for _, part := range parts {
			if part == "" {
				continue
			}
			if strings.Contains(key, "|"+part+"|") || strings.HasSuffix(key, "|"+part) {
				c.lru.Remove(key)
				break
			}
		}
	}
}
