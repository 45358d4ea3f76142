package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrQueueFull is returned by Publish when the event was dropped.
var ErrQueueFull = errors.New("event queue full")

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// AsyncDispatcher queues events and delivers them to subscribers from Run.
// Delivery is at-most-once: a full queue drops the event, and events still queued when
// Run returns are discarded. Publish never blocks.
type AsyncDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	queue     chan Event
	logger    *zap.Logger
	now       func() time.Time
}

// NewAsyncDispatcher creates a dispatcher with the given queue capacity.
func NewAsyncDispatcher(buffer int, logger *zap.Logger) *AsyncDispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncDispatcher{
		listeners: make(map[EventType][]EventHandler),
		queue:     make(chan Event, buffer),
		logger:    logger,
		now:       time.Now,
	}
}

// Publish enqueues the event, assigning an id and timestamp when missing.
func (d *AsyncDispatcher) Publish(_ context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now().UTC()
	}
	select {
	case d.queue <- event:
		return nil
	default:
		d.logger.Warn("dropping event", zap.String("event_type", string(event.Type)), zap.String("event_id", event.ID))
		return ErrQueueFull
	}
}

// Subscribe registers a handler for the given event type.
func (d *AsyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// Run delivers queued events until ctx is cancelled.
func (d *AsyncDispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.queue:
			d.deliver(ctx, event)
		}
	}
}

func (d *AsyncDispatcher) deliver(ctx context.Context, event Event) {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		d.invoke(ctx, handler, event)
	}
}

func (d *AsyncDispatcher) invoke(ctx context.Context, handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked", zap.Any("panic", r), zap.String("event_type", string(event.Type)))
		}
	}()
	if err := handler(ctx, event); err != nil {
		d.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}
