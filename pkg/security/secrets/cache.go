package secrets

import (
	"sync"
	"time"
)

// CacheConfig configures the resolved secret cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	MaxSize int
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// Cache holds resolved secrets for TTL. When MaxSize is reached the entry
// closest to expiry is evicted.
type Cache struct {
	config  CacheConfig
	entries map[string]*cacheEntry
	mu      sync.RWMutex
	now     func() time.Time
}

// NewCache creates a secret cache.
func NewCache(config CacheConfig) *Cache {
	return &Cache{
		config:  config,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// Get returns the cached value for name if it has not expired.
func (c *Cache) Get(name string) (string, bool) {
	if !c.config.Enabled {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[name]
	if !ok || !c.now().Before(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}

// Set caches value for name.
func (c *Cache) Set(name, value string) {
	if !c.config.Enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[name]; !exists && c.config.MaxSize > 0 && len(c.entries) >= c.config.MaxSize {
		var oldest string
		var oldestAt time.Time
		first := true
		for k, e := range c.entries {
			if first || e.expiresAt.Before(oldestAt) {
				oldest, oldestAt, first = k, e.expiresAt, false
			}
		}
		delete(c.entries, oldest)
	}

	c.entries[name] = &cacheEntry{
		value:     value,
		expiresAt: c.now().Add(c.config.TTL),
	}
}

// Clear drops every cached secret.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// Size returns the number of cached entries, expired or not.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
