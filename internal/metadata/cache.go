package metadata

import (
	"sync"
	"time"
)

// Cache is an in-memory TTL cache for idempotent provider lookups.
type Cache[V any] struct {
	mu       sync.Mutex
	items    map[string]cacheItem[V]
	ttl      time.Duration
	maxItems int
	now      func() time.Time
}

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// CacheConfig holds cache configuration.
type CacheConfig struct {
	TTL      time.Duration
	MaxItems int
}

// NewCache creates a cache. Zero values fall back to 15 minutes and 1000 items.
func NewCache[V any](cfg CacheConfig) *Cache[V] {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 1000
	}
	return &Cache[V]{
		items:    make(map[string]cacheItem[V]),
		ttl:      cfg.TTL,
		maxItems: cfg.MaxItems,
		now:      time.Now,
	}
}

// Get returns an unexpired value.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || c.now().After(item.expiresAt) {
		var zero V
		return zero, false
	}
	return item.value, true
}

// Set stores a value for the configured TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxItems {
		c.evict()
	}
	c.items[key] = cacheItem[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// evict drops expired entries, then the entry closest to expiry. Caller holds mu.
func (c *Cache[V]) evict() {
	now := c.now()
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
		}
	}
	if len(c.items) < c.maxItems {
		return
	}

	var oldestKey string
	var oldest time.Time
	for key, item := range c.items {
		if oldestKey == "" || item.expiresAt.Before(oldest) {
			oldestKey, oldest = key, item.expiresAt
		}
	}
	delete(c.items, oldestKey)
}
