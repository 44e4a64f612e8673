package event

import (
	"testing"

	"github.com/commerce/backoffice/internal/domain/billing"
	"github.com/commerce/backoffice/internal/domain/trade"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_Register(t *testing.T) {
	t.Run("specific types", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := newTestHandler()

		registry.Register(handler, trade.EventTypeOrderCreated, trade.EventTypeOrderStatusChanged)

		assert.Len(t, registry.GetHandlers(trade.EventTypeOrderCreated), 1)
		assert.Len(t, registry.GetHandlers(trade.EventTypeOrderStatusChanged), 1)
		assert.Empty(t, registry.GetHandlers(billing.EventTypeVendorBillingSaved))
	})

	t.Run("wildcard", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := newTestHandler()

		registry.Register(handler)

		assert.Len(t, registry.GetHandlers(trade.EventTypeOrderCreated), 1)
		assert.Len(t, registry.GetHandlers("AnythingElse"), 1)
	})

	t.Run("typed handlers come before wildcard", func(t *testing.T) {
		registry := NewHandlerRegistry()
		typed := newTestHandler()
		wildcard := newTestHandler()

		registry.Register(wildcard)
		registry.Register(typed, trade.EventTypeOrderCreated)

		handlers := registry.GetHandlers(trade.EventTypeOrderCreated)
		assert.Len(t, handlers, 2)
		assert.Same(t, typed, handlers[0])
		assert.Same(t, wildcard, handlers[1])
	})

	t.Run("duplicate registration is ignored", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := newTestHandler()

		registry.Register(handler, trade.EventTypeOrderCreated)
		registry.Register(handler, trade.EventTypeOrderCreated)
		registry.Register(handler)
		registry.Register(handler)

		assert.Len(t, registry.GetHandlers(trade.EventTypeOrderCreated), 2)
		assert.Equal(t, 1, registry.Count())
	})
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	first := newTestHandler()
	second := newTestHandler()
	wildcard := newTestHandler()

	registry.Register(first, trade.EventTypeOrderCreated)
	registry.Register(second, trade.EventTypeOrderCreated)
	registry.Register(wildcard)
	assert.Equal(t, 3, registry.Count())

	registry.Unregister(first)
	handlers := registry.GetHandlers(trade.EventTypeOrderCreated)
	assert.Len(t, handlers, 2)
	assert.Same(t, second, handlers[0])

	registry.Unregister(second)
	registry.Unregister(wildcard)
	assert.Empty(t, registry.GetHandlers(trade.EventTypeOrderCreated))
	assert.Equal(t, 0, registry.Count())
}
