package security

import (
	"path/filepath"
	"sync"
	"time"
)

type resolvedEntry struct {
	resolved string
	expires  time.Time
}

// ResolveCache memoizes filepath.EvalSymlinks for sweep roots, which are
// resolved once per file otherwise. Entries expire after ttl.
type ResolveCache struct {
	mu      sync.RWMutex
	entries map[string]resolvedEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewResolveCache creates a cache whose entries live for ttl
func NewResolveCache(ttl time.Duration) *ResolveCache {
	return &ResolveCache{
		entries: make(map[string]resolvedEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Resolve returns the symlink-free form of path
func (c *ResolveCache) Resolve(path string) (string, error) {
	key := PathKey(path)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return entry.resolved, nil
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[key] = resolvedEntry{resolved: resolved, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return resolved, nil
}

// Purge drops every entry
func (c *ResolveCache) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]resolvedEntry)
	c.mu.Unlock()
}

// Len returns the number of cached entries
func (c *ResolveCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
