// Package cache implements the hot cache for compiled manifests, compiled
// prompts, and memory summaries. It is an optimization only: every caller
// has a correct durable-store fallback, and a nil *Cache behaves as a
// permanent miss, so an unavailable cache can never fail an operation.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Kind identifies an artifact class. Each class has its own TTL, chosen by
// the caller from config.
type Kind string

const (
	KindManifest Kind = "manifest"
	KindPrompt   Kind = "compiled_prompt"
	KindSummary  Kind = "memory_summary"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is an in-process TTL key-value store. Keys are scoped by
// (workspace, kind, subKey); subKey is empty except for compiled prompts,
// which key by content type.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

func key(workspace string, kind Kind, subKey string) string {
	// Workspaces come from callers; strip the separator so a crafted
	// workspace name cannot collide with another workspace's keys.
	ws := strings.ReplaceAll(workspace, "|", "_")
	return ws + "|" + string(kind) + "|" + subKey
}

// Get returns the cached value if present and unexpired.
func (c *Cache) Get(workspace string, kind Kind, subKey string) (any, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.entries[key(workspace, kind, subKey)]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		// Lazy eviction; the next Set or Invalidate also sweeps.
		c.mu.Lock()
		delete(c.entries, key(workspace, kind, subKey))
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores a value with the given TTL. Write-through callers invoke this
// right after the durable write. A nil cache ignores the call.
func (c *Cache) Set(workspace string, kind Kind, subKey string, value any, ttl time.Duration) {
	if c == nil || ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(workspace, kind, subKey)] = entry{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
}

// Invalidate removes every cached artifact for a workspace: the manifest,
// all compiled prompts regardless of content type, and the memory summary.
// Called on every manifest write and memory mutation; best-effort by
// construction.
func (c *Cache) Invalidate(workspace string) {
	if c == nil {
		return
	}

	prefix := strings.ReplaceAll(workspace, "|", "_") + "|"

	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

// Len reports the number of live entries (expired entries may be counted
// until swept). Used by tests and the web status view.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
