package cache

import (
	"context"
	"sort"
	"sync"

	"stockex-offline-sync/internal/model"
)

// MemoryCache is an in-memory implementation of ResponseCache.
// Use this for development/testing or single-device deployments.
type MemoryCache struct {
	mu          sync.RWMutex
	generations map[string]map[string]*model.CacheEntry
}

// NewMemoryCache creates a new in-memory response cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		generations: make(map[string]map[string]*model.CacheEntry),
	}
}

// Match retrieves an entry by generation and key.
func (c *MemoryCache) Match(ctx context.Context, generation, key string) (*model.CacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.generations[generation][key]
	if !exists {
		return nil, ErrCacheMiss
	}

	return cloneEntry(entry), nil
}

// Put stores an entry in generation.
func (c *MemoryCache) Put(ctx context.Context, generation string, entry *model.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen, exists := c.generations[generation]
	if !exists {
		gen = make(map[string]*model.CacheEntry)
		c.generations[generation] = gen
	}
	gen[entry.Key] = cloneEntry(entry)

	return nil
}

// Generations lists generation names in sorted order.
func (c *MemoryCache) Generations(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.generations))
	for name := range c.generations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteGeneration removes a generation and its entries.
func (c *MemoryCache) DeleteGeneration(ctx context.Context, generation string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.generations, generation)
	return nil
}

// Len returns the number of entries in generation.
func (c *MemoryCache) Len(generation string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.generations[generation])
}

var _ ResponseCache = (*MemoryCache)(nil)
