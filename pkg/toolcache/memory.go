package toolcache

import (
	"context"
	"sync"
	"time"

	"github.com/harun/toolhub/pkg/tool"
)

// MemoryCache keeps entries in process memory. Expired entries are dropped
// lazily on read or by Purge.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*Entry),
		now:     time.Now,
	}
}

// Find returns the live entry for the call
func (c *MemoryCache) Find(ctx context.Context, toolName string, args map[string]interface{}, runID, orgID string) (*Entry, error) {
	fp, err := Fingerprint(toolName, args, runID, orgID)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	entry, ok := c.entries[fp]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if entry.Expired(c.now()) {
		c.mu.Lock()
		if cur, ok := c.entries[fp]; ok && cur == entry {
			delete(c.entries, fp)
		}
		c.mu.Unlock()
		return nil, nil
	}

	cp := *entry
	return &cp, nil
}

// Store writes the result under the call fingerprint
func (c *MemoryCache) Store(ctx context.Context, toolName string, args map[string]interface{}, result tool.ToolResult, runID, orgID string, ttl time.Duration) error {
	entry, err := newEntry(toolName, args, result, runID, orgID, ttl, c.now())
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.entries[entry.Fingerprint] = entry
	c.mu.Unlock()
	return nil
}

// Purge drops expired entries
func (c *MemoryCache) Purge(ctx context.Context) (int64, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var removed int64
	for fp, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, fp)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, live or not
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
