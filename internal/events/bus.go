package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Event is a domain event carried across bounded contexts. Implementations
// are plain structs with exported fields so they can be serialized to the
// outbox unchanged.
type Event interface {
	Name() string
	AggregateID() string
	OccurredAt() time.Time
}

// Handler reacts to a single event type. Each handler commits its own unit
// of work; the bus never wraps handlers in a shared transaction.
type Handler interface {
	Name() string
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	name string
	fn   func(ctx context.Context, event Event) error
}

func NewHandlerFunc(name string, fn func(ctx context.Context, event Event) error) HandlerFunc {
	return HandlerFunc{name: name, fn: fn}
}

func (h HandlerFunc) Name() string { return h.name }

func (h HandlerFunc) Handle(ctx context.Context, event Event) error {
	return h.fn(ctx, event)
}

// Sink receives every published event, typically to persist it to the outbox
// for relay to external consumers.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Bus is a synchronous in-process dispatcher. Publishing blocks until every
// subscribed handler has run. Handlers for the same event run sequentially;
// a failing handler is reported but does not prevent its siblings from
// running, since each handler's persistence call is its own atomic boundary.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
	metrics  *Metrics
	sink     Sink
}

type BusOption func(*Bus)

func WithMetrics(m *Metrics) BusOption {
	return func(b *Bus) { b.metrics = m }
}

func WithSink(s Sink) BusOption {
	return func(b *Bus) { b.sink = s }
}

func NewBus(logger *slog.Logger, opts ...BusOption) *Bus {
	b := &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for an event name. Registration order is the
// dispatch order.
func (b *Bus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to all subscribed handlers and returns the
// joined errors of any that failed. Events are appended to the sink before
// dispatch so external consumers see them even when a handler fails.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if b.sink != nil {
		if err := b.sink.Append(ctx, event); err != nil {
			b.logger.ErrorContext(ctx, "failed to append event to sink",
				"event", event.Name(),
				"aggregate_id", event.AggregateID(),
				"error", err,
			)
		}
	}

	b.mu.RLock()
	handlers := b.handlers[event.Name()]
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.logger.DebugContext(ctx, "no handlers for event", "event", event.Name())
		return nil
	}

	var errs []error
	for _, handler := range handlers {
		start := time.Now()
		err := handler.Handle(ctx, event)
		duration := time.Since(start).Seconds()

		if b.metrics != nil {
			b.metrics.RecordDispatch(ctx, event.Name(), handler.Name(), duration, err == nil)
		}

		if err != nil {
			b.logger.ErrorContext(ctx, "event handler failed",
				"event", event.Name(),
				"handler", handler.Name(),
				"aggregate_id", event.AggregateID(),
				"error", err,
			)
			errs = append(errs, fmt.Errorf("handler %s: %w", handler.Name(), err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("event %s: %w", event.Name(), errors.Join(errs...))
	}
	return nil
}
