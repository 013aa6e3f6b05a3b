package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"stockex-offline-sync/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisBus relays messages over a Redis pub/sub channel, so the caching
// proxy and the coordinator can run in separate processes.
type RedisBus struct {
	client  *redis.Client
	channel string

	mu     sync.Mutex
	subs   map[*redis.PubSub]chan struct{}
	closed bool
}

// RedisBusConfig holds configuration for the Redis bus.
type RedisBusConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// NewRedisBus connects to Redis and returns a bus on cfg.Channel.
func NewRedisBus(cfg RedisBusConfig) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = "stockex:messages"
	}

	log.Printf("[RedisBus] Connected - channel:%s", channel)
	return &RedisBus{
		client:  client,
		channel: channel,
		subs:    make(map[*redis.PubSub]chan struct{}),
	}, nil
}

// Publish encodes msg as JSON and publishes it on the channel.
func (b *RedisBus) Publish(ctx context.Context, msg model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe opens a dedicated pub/sub connection for h. Messages are
// delivered on a single goroutine per subscription.
func (b *RedisBus) Subscribe(h Handler) (func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	done := make(chan struct{})
	b.mu.Lock()
	b.subs[ps] = done
	b.mu.Unlock()

	go func() {
		defer close(done)
		for raw := range ps.Channel() {
			var msg model.Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				log.Printf("[RedisBus] Dropping malformed message: %v", err)
				continue
			}
			h(msg)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ps)
			b.mu.Unlock()
			ps.Close()
			<-done
		})
	}, nil
}

// Close closes every subscription and the Redis client.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = make(map[*redis.PubSub]chan struct{})
	b.mu.Unlock()

	for ps, done := range subs {
		ps.Close()
		<-done
	}
	return b.client.Close()
}

var _ Bus = (*RedisBus)(nil)
