package broadcast

import (
	"context"

	"stockex-offline-sync/internal/model"
)

// Handler receives messages delivered by a Bus.
type Handler func(model.Message)

// Bus relays messages between the cache strategy layer and the application
// coordinator. Neither side holds a reference to the other.
type Bus interface {
	// Publish delivers msg to every current subscriber.
	Publish(ctx context.Context, msg model.Message) error

	// Subscribe registers h and returns a function that removes it.
	// The cancel function is safe to call more than once.
	Subscribe(h Handler) (cancel func(), err error)

	// Close releases the bus and all subscriptions.
	Close() error
}
