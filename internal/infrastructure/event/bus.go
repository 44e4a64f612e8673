package event

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/commerce/backoffice/internal/domain/shared"
	"github.com/commerce/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

type delivery struct {
	ctx     context.Context
	handler shared.EventHandler
	event   shared.DomainEvent
}

// InMemoryEventBus implements EventBus with in-process pub/sub.
// Publish never reports handler failures; they are logged and counted.
type InMemoryEventBus struct {
	registry  *HandlerRegistry
	logger    *zap.Logger
	async     bool
	workers   int
	queueSize int

	mu      sync.RWMutex // guards queue against send after close
	queue   chan delivery
	running atomic.Bool
	wg      sync.WaitGroup

	failures atomic.Int64
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithAsyncDispatch hands deliveries to a worker pool once the bus is started.
// A full queue falls back to dispatching on the publisher's goroutine.
func WithAsyncDispatch(workers, queueSize int) BusOption {
	return func(b *InMemoryEventBus) {
		b.async = true
		if workers > 0 {
			b.workers = workers
		}
		if queueSize > 0 {
			b.queueSize = queueSize
		}
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry:  NewHandlerRegistry(),
		logger:    logger,
		workers:   4,
		queueSize: 1000,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers every event to its handlers
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		for _, handler := range b.registry.GetHandlers(event.EventType()) {
			if b.enqueue(ctx, handler, event) {
				continue
			}
			b.deliver(ctx, handler, event)
		}
	}
	return nil
}

// enqueue reports whether the delivery was handed to the worker pool
func (b *InMemoryEventBus) enqueue(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) bool {
	if !b.async {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running.Load() {
		return false
	}

	select {
	case b.queue <- delivery{ctx: context.WithoutCancel(ctx), handler: handler, event: event}:
		return true
	default:
		b.logger.Warn("event queue full, dispatching inline",
			zap.String("event_type", event.EventType()))
		return false
	}
}

// Subscribe registers a handler. Without explicit types the handler's own
// EventTypes are used.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.String("handler", fmt.Sprintf("%T", handler)),
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// Start starts the worker pool when async dispatch is enabled
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running.Load() {
		return nil
	}

	if b.async {
		b.queue = make(chan delivery, b.queueSize)
		for i := 0; i < b.workers; i++ {
			b.wg.Add(1)
			go b.work(b.queue)
		}
	}
	b.running.Store(true)
	b.logger.Info("event bus started",
		zap.Bool("async", b.async),
		zap.Int("workers", b.workers))
	return nil
}

// Stop drains the queue. It returns ctx.Err() if the workers do not finish in time.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running.Load() {
		b.mu.Unlock()
		return nil
	}
	b.running.Store(false)
	if b.queue != nil {
		close(b.queue)
		b.queue = nil
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("event bus stop timed out")
		return ctx.Err()
	}
}

// Failures returns how many deliveries failed since the bus was created
func (b *InMemoryEventBus) Failures() int64 {
	return b.failures.Load()
}

func (b *InMemoryEventBus) work(queue <-chan delivery) {
	defer b.wg.Done()
	for d := range queue {
		b.deliver(d.ctx, d.handler, d.event)
	}
}

func (b *InMemoryEventBus) deliver(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) {
	ctx, span := telemetry.StartSpan(ctx, "event."+event.EventType(),
		telemetry.WithAttribute("event.id", event.EventID().String()),
		telemetry.WithAttribute("event.handler", fmt.Sprintf("%T", handler)),
	)
	defer span.End()

	if err := dispatch(ctx, handler, event); err != nil {
		b.failures.Add(1)
		telemetry.RecordError(span, err)
		b.logger.Error("handler failed to process event",
			zap.String("event_type", event.EventType()),
			zap.String("event_id", event.EventID().String()),
			zap.String("handler", fmt.Sprintf("%T", handler)),
			zap.Error(err),
		)
	}
}

func dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
