package broadcast

import (
	"context"
	"testing"
	"time"

	"stockex-offline-sync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBusFanOut(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	var first, second []model.MessageType
	cancelFirst, err := bus.Subscribe(func(m model.Message) { first = append(first, m.Type) })
	require.NoError(t, err)
	_, err = bus.Subscribe(func(m model.Message) { second = append(second, m.Type) })
	require.NoError(t, err)

	msg := model.Message{Type: model.MessageSyncRequested, Timestamp: time.Now()}
	require.NoError(t, bus.Publish(context.Background(), msg))

	cancelFirst()
	cancelFirst()
	require.NoError(t, bus.Publish(context.Background(), model.Message{Type: model.MessageSkipWaiting}))

	assert.Equal(t, []model.MessageType{model.MessageSyncRequested}, first)
	assert.Equal(t, []model.MessageType{model.MessageSyncRequested, model.MessageSkipWaiting}, second)
	assert.Equal(t, 1, bus.Subscribers())
}

func TestMemoryBusHandlerMayUnsubscribe(t *testing.T) {
	bus := NewMemoryBus()
	defer bus.Close()

	calls := 0
	var cancel func()
	cancel, err := bus.Subscribe(func(model.Message) {
		calls++
		cancel()
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), model.Message{Type: model.MessageSyncRequested}))
	require.NoError(t, bus.Publish(context.Background(), model.Message{Type: model.MessageSyncRequested}))
	assert.Equal(t, 1, calls)
}

func TestMemoryBusClosed(t *testing.T) {
	bus := NewMemoryBus()
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), model.Message{}), ErrClosed)
	_, err := bus.Subscribe(func(model.Message) {})
	assert.ErrorIs(t, err, ErrClosed)
}
