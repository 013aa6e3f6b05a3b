package broadcast

import (
	"context"
	"sort"
	"sync"

	"stockex-offline-sync/internal/model"
)

// MemoryBus is an in-process Bus. Handlers run synchronously on the
// publisher's goroutine in subscription order.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[uint64]Handler
	nextID   uint64
	closed   bool
}

// NewMemoryBus creates an in-process bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[uint64]Handler)}
}

// Publish delivers msg to a snapshot of the current subscribers.
func (b *MemoryBus) Publish(ctx context.Context, msg model.Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	ids := make([]uint64, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]Handler, len(ids))
	for i, id := range ids {
		handlers[i] = b.handlers[id]
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		h(msg)
	}
	return nil
}

// Subscribe registers h.
func (b *MemoryBus) Subscribe(h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	id := b.nextID
	b.nextID++
	b.handlers[id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}, nil
}

// Subscribers returns the number of registered handlers.
func (b *MemoryBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// Close drops all subscribers.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.handlers = make(map[uint64]Handler)
	return nil
}

// BusError is returned by a closed bus.
type BusError string

func (e BusError) Error() string { return string(e) }

// ErrClosed is returned when publishing to or subscribing on a closed bus.
const ErrClosed BusError = "bus closed"

var _ Bus = (*MemoryBus)(nil)
