package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"stockex-offline-sync/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps each generation in a Redis hash (field = request key) and
// tracks generation names in a set, so a proxy fleet shares one cache.
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisCacheConfig holds configuration for the Redis response cache.
type RedisCacheConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisCache creates a Redis-backed response cache.
func NewRedisCache(cfg RedisCacheConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "stockex:responses"
	}

	log.Printf("[RedisCache] Started - DB:%d, prefix:%s", cfg.DB, keyPrefix)
	return &RedisCache{client: client, keyPrefix: keyPrefix}, nil
}

func (c *RedisCache) generationKey(generation string) string {
	return c.keyPrefix + ":gen:" + generation
}

func (c *RedisCache) indexKey() string {
	return c.keyPrefix + ":generations"
}

// Match retrieves an entry from a generation hash.
func (c *RedisCache) Match(ctx context.Context, generation, key string) (*model.CacheEntry, error) {
	data, err := c.client.HGet(ctx, c.generationKey(generation), key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}

	var entry model.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return &entry, nil
}

// Put stores an entry and registers its generation atomically.
func (c *RedisCache) Put(ctx context.Context, generation string, entry *model.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, c.generationKey(generation), entry.Key, data)
		pipe.SAdd(ctx, c.indexKey(), generation)
		return nil
	})
	return err
}

// Generations lists generation names in sorted order.
func (c *RedisCache) Generations(ctx context.Context) ([]string, error) {
	names, err := c.client.SMembers(ctx, c.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// DeleteGeneration removes a generation hash and its index entry.
func (c *RedisCache) DeleteGeneration(ctx context.Context, generation string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.generationKey(generation))
		pipe.SRem(ctx, c.indexKey(), generation)
		return nil
	})
	return err
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ ResponseCache = (*RedisCache)(nil)
