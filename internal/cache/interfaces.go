package cache

import (
	"context"

	"stockex-offline-sync/internal/model"
)

// ResponseCache stores captured HTTP responses grouped in named generations.
// Entries never expire individually; a generation is dropped wholesale.
// This abstraction allows swapping between memory cache (single device)
// and Redis cache (shared edge proxy) without changing the strategy layer.
type ResponseCache interface {
	// Match returns the entry for key in generation. Returns ErrCacheMiss if not found.
	Match(ctx context.Context, generation, key string) (*model.CacheEntry, error)

	// Put stores an entry in generation, creating the generation if needed.
	Put(ctx context.Context, generation string, entry *model.CacheEntry) error

	// Generations lists the names of all existing generations.
	Generations(ctx context.Context) ([]string, error)

	// DeleteGeneration removes a generation and all of its entries.
	DeleteGeneration(ctx context.Context, generation string) error
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)

func cloneEntry(e *model.CacheEntry) *model.CacheEntry {
	c := *e
	c.Header = e.Header.Clone()
	c.Body = make([]byte, len(e.Body))
	copy(c.Body, e.Body)
	return &c
}
