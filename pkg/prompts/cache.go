// Package prompts provides registry-backed prompt templates with TTL
// caching, local-file development overrides, and placeholder rendering.
package prompts

import (
	"sync"
	"time"
)

// cacheEntry holds a cached template with a timestamp for TTL expiration.
type cacheEntry struct {
	template string
	storedAt time.Time
}

// Cache is a thread-safe in-memory prompt cache with TTL expiration.
// Expired entries are cleaned up lazily on Get() — no background goroutine.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
}

// NewCache creates a new cache with the given TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

// Get returns a cached template if present and not expired.
func (c *Cache) Get(name string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}

	if time.Since(entry.storedAt) > c.ttl {
		// Expired — clean up lazily. Re-check under write lock: a
		// concurrent Set() may have stored a fresh entry in between.
		c.mu.Lock()
		if current, ok := c.entries[name]; ok && time.Since(current.storedAt) > c.ttl {
			delete(c.entries, name)
		}
		c.mu.Unlock()
		return "", false
	}

	return entry.template, true
}

// Set stores a template with the current timestamp.
func (c *Cache) Set(name, template string) {
	c.mu.Lock()
	c.entries[name] = &cacheEntry{
		template: template,
		storedAt: time.Now(),
	}
	c.mu.Unlock()
}
