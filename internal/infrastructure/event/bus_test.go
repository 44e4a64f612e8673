package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Order", uuid.New()),
		Data:            "test data",
	}
}

type testHandler struct {
	eventTypes []string
	mu         sync.Mutex
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	done       chan struct{}
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	h.handled = append(h.handled, event)
	err, p, done := h.err, h.panicWith, h.done
	h.mu.Unlock()

	if done != nil {
		defer func() { done <- struct{}{} }()
	}
	if p != nil {
		panic(p)
	}
	return err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	t.Run("delivers to subscribed handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := newTestHandler(trade.EventTypeOrderCreated)
		bus.Subscribe(handler)

		event := newTestEvent(trade.EventTypeOrderCreated)
		require.NoError(t, bus.Publish(context.Background(), event))

		handled := handler.getHandled()
		require.Len(t, handled, 1)
		assert.Equal(t, event, handled[0])
	})

	t.Run("delivers every event of a batch", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := newTestHandler(trade.EventTypeOrderCreated, trade.EventTypeOrderStatusChanged)
		bus.Subscribe(handler)

		err := bus.Publish(context.Background(),
			newTestEvent(trade.EventTypeOrderCreated),
			newTestEvent(trade.EventTypeOrderStatusChanged),
			newTestEvent(trade.EventTypeShippingEventReported),
		)

		require.NoError(t, err)
		assert.Len(t, handler.getHandled(), 2)
	})

	t.Run("wildcard handler sees everything", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		wildcard := newTestHandler()
		bus.Subscribe(wildcard)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent("Whatever")))
		assert.Len(t, wildcard.getHandled(), 1)
	})

	t.Run("failing handler does not stop the others", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		failing := newTestHandler(trade.EventTypeOrderCreated)
		failing.err = errors.New("projection down")
		healthy := newTestHandler(trade.EventTypeOrderCreated)
		bus.Subscribe(failing)
		bus.Subscribe(healthy)

		err := bus.Publish(context.Background(), newTestEvent(trade.EventTypeOrderCreated))

		require.NoError(t, err)
		assert.Len(t, failing.getHandled(), 1)
		assert.Len(t, healthy.getHandled(), 1)
		assert.Equal(t, int64(1), bus.Failures())
	})

	t.Run("panicking handler is contained", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		panicking := newTestHandler(trade.EventTypeOrderCreated)
		panicking.panicWith = "boom"
		healthy := newTestHandler(trade.EventTypeOrderCreated)
		bus.Subscribe(panicking)
		bus.Subscribe(healthy)

		assert.NotPanics(t, func() {
			_ = bus.Publish(context.Background(), newTestEvent(trade.EventTypeOrderCreated))
		})
		assert.Len(t, healthy.getHandled(), 1)
		assert.Equal(t, int64(1), bus.Failures())
	})

	t.Run("no matching handler", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		handler := newTestHandler(trade.EventTypeOrderStatusChanged)
		bus.Subscribe(handler)

		require.NoError(t, bus.Publish(context.Background(), newTestEvent(trade.EventTypeOrderCreated)))
		assert.Empty(t, handler.getHandled())
	})
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler(trade.EventTypeOrderCreated)
	bus.Subscribe(handler)

	_ = bus.Publish(context.Background(), newTestEvent(trade.EventTypeOrderCreated))
	bus.Unsubscribe(handler)
	_ = bus.Publish(context.Background(), newTestEvent(trade.EventTypeOrderCreated))

	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_Async(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch(2, 16))
	handler := newTestHandler(trade.EventTypeOrderCreated)
	handler.done = make(chan struct{}, 8)
	bus.Subscribe(handler)

	require.NoError(t, bus.Start(context.Background()))

	// The publisher's context is canceled before the workers run.
	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(ctx, newTestEvent(trade.EventTypeOrderCreated)))
	}
	cancel()

	for i := 0; i < 3; i++ {
		select {
		case <-handler.done:
		case <-time.After(2 * time.Second):
			t.Fatal("async delivery did not happen")
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, bus.Stop(stopCtx))
	assert.Len(t, handler.getHandled(), 3)

	// After Stop, publishing falls back to inline dispatch.
	require.NoError(t, bus.Publish(context.Background(), newTestEvent(trade.EventTypeOrderCreated)))
	<-handler.done
	assert.Len(t, handler.getHandled(), 4)
}

func TestInMemoryEventBus_StartStopIdempotent(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop(), WithAsyncDispatch(1, 1))
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Stop(ctx))
	require.NoError(t, bus.Stop(ctx))
}
