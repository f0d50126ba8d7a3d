package papersources

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of upstream responses kept when no size is configured.
const DefaultCacheSize = 256

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
	seq       uint64
}

// ResponseCache keeps successful upstream response bodies keyed by URL.
// Each entry carries its own lifetime, so searches with different cache
// lifetime hints can share one cache. It is safe for concurrent use.
type ResponseCache struct {
	entries *lru.Cache[string, cacheEntry]
	now     func() time.Time

	// mu orders writes with expiry eviction so a fresh Put is never evicted
	// in place of the stale entry it replaced.
	mu  sync.Mutex
	seq uint64
}

// NewResponseCache creates a cache holding at most size responses.
func NewResponseCache(size int) (*ResponseCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("creating lru cache: %w", err)
	}
	return &ResponseCache{
		entries: entries,
		now:     time.Now,
	}, nil
}

// Get returns the cached body for key if it has not expired.
// Expired entries are evicted on access.
func (c *ResponseCache) Get(key string) ([]byte, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.evictExpired(key, entry)
		return nil, false
	}
	return entry.body, true
}

// evictExpired removes key only while it still holds the stale entry.
func (c *ResponseCache) evictExpired(key string, stale cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.entries.Peek(key)
	if ok && current.seq == stale.seq {
		c.entries.Remove(key)
	}
}

// Put stores body under key for maxAge. Non-positive lifetimes are ignored.
func (c *ResponseCache) Put(key string, body []byte, maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.entries.Add(key, cacheEntry{
		body:      body,
		expiresAt: c.now().Add(maxAge),
		seq:       c.seq,
	})
}

// Len returns the number of entries, including ones that expired but were not yet evicted.
func (c *ResponseCache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry.
func (c *ResponseCache) Purge() {
	c.entries.Purge()
}
