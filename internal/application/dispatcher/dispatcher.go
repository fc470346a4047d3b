package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/dorm-print/internal/domain/event"
)

// ErrClosed is returned when dispatching on a closed dispatcher
var ErrClosed = errors.New("dispatcher is closed")

// Handler processes one domain event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a subscription. Handler is nil in ListHandlers results.
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// Dispatcher routes events to registered handlers
type Dispatcher interface {
	// Subscribe registers a handler for an event type
	Subscribe(eventType event.Type, handler Handler)

	// SubscribeNamed registers a handler with a name for debugging
	SubscribeNamed(eventType event.Type, name string, handler Handler)

	// Unsubscribe removes a handler by name
	Unsubscribe(eventType event.Type, name string)

	// Dispatch runs all handlers for the event in order and returns the first error
	Dispatch(ctx context.Context, evt *event.Event) error

	// DispatchAsync queues the event and returns immediately. Events that share a
	// SenderID are handled one at a time in submission order; different senders
	// proceed concurrently.
	DispatchAsync(ctx context.Context, evt *event.Event)

	// ListHandlers returns registered handlers for an event type
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close stops accepting events and waits for queued ones to finish
	Close() error
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type queued struct {
	ctx context.Context
	evt *event.Event
}

// lane is the FIFO of pending events for one sender
type lane struct {
	pending []queued
}

type eventDispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerInfo
	logger   Logger

	lanesMu sync.Mutex
	lanes   map[string]*lane

	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*eventDispatcher)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(d *eventDispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	d := &eventDispatcher{
		handlers: make(map[event.Type][]HandlerInfo),
		lanes:    make(map[string]*lane),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *eventDispatcher) Subscribe(eventType event.Type, handler Handler) {
	d.mu.RLock()
	name := fmt.Sprintf("handler-%d", len(d.handlers[eventType]))
	d.mu.RUnlock()
	d.SubscribeNamed(eventType, name, handler)
}

func (d *eventDispatcher) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	d.mu.Lock()
	d.handlers[eventType] = append(d.handlers[eventType], HandlerInfo{
		Name:      name,
		EventType: eventType,
		Handler:   handler,
	})
	d.mu.Unlock()

	d.logInfo("Handler registered", "event_type", eventType, "handler_name", name)
}

func (d *eventDispatcher) Unsubscribe(eventType event.Type, name string) {
	d.mu.Lock()
	handlers := d.handlers[eventType]
	filtered := handlers[:0:0]
	for _, h := range handlers {
		if h.Name != name {
			filtered = append(filtered, h)
		}
	}
	d.handlers[eventType] = filtered
	d.mu.Unlock()

	d.logInfo("Handler unregistered", "event_type", eventType, "handler_name", name)
}

func (d *eventDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	if d.closed.Load() {
		return ErrClosed
	}
	return d.run(ctx, evt)
}

func (d *eventDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	d.lanesMu.Lock()
	// Checked under lanesMu so no lane starts once Close is waiting
	if d.closed.Load() {
		d.lanesMu.Unlock()
		d.logError("Cannot dispatch async event, dispatcher is closed",
			"event_type", evt.Type,
			"event_id", evt.ID,
		)
		return
	}

	l, busy := d.lanes[evt.SenderID]
	if !busy {
		l = &lane{}
		d.lanes[evt.SenderID] = l
	}
	l.pending = append(l.pending, queued{ctx: ctx, evt: evt})
	if !busy {
		d.wg.Add(1)
		go d.drain(evt.SenderID, l)
	}
	d.lanesMu.Unlock()
}

// drain runs queued events for one sender until the lane is empty
func (d *eventDispatcher) drain(key string, l *lane) {
	defer d.wg.Done()

	for {
		d.lanesMu.Lock()
		if len(l.pending) == 0 {
			delete(d.lanes, key)
			d.lanesMu.Unlock()
			return
		}
		next := l.pending[0]
		l.pending = l.pending[1:]
		d.lanesMu.Unlock()

		if err := d.run(next.ctx, next.evt); err != nil {
			d.logError("Async handler error",
				"event_type", next.evt.Type,
				"event_id", next.evt.ID,
				"error", err,
			)
		}
	}
}

func (d *eventDispatcher) run(ctx context.Context, evt *event.Event) error {
	d.mu.RLock()
	handlers := d.handlers[evt.Type]
	d.mu.RUnlock()

	d.logInfo("Dispatching event",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"handler_count", len(handlers),
	)

	for _, info := range handlers {
		if err := d.safeExecute(ctx, evt, info); err != nil {
			d.logError("Handler error",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", info.Name,
				"error", err,
			)
			return fmt.Errorf("handler %s failed: %w", info.Name, err)
		}
	}
	return nil
}

func (d *eventDispatcher) ListHandlers(eventType event.Type) []HandlerInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()

	handlers := d.handlers[eventType]
	result := make([]HandlerInfo, len(handlers))
	for i, h := range handlers {
		result[i] = HandlerInfo{Name: h.Name, EventType: h.EventType}
	}
	return result
}

func (d *eventDispatcher) Close() error {
	d.lanesMu.Lock()
	if !d.closed.CompareAndSwap(false, true) {
		d.lanesMu.Unlock()
		return fmt.Errorf("dispatcher already closed")
	}
	d.lanesMu.Unlock()

	d.logInfo("Closing dispatcher, waiting for queued events")
	d.wg.Wait()
	d.logInfo("Dispatcher closed")
	return nil
}

// safeExecute runs a handler with panic recovery
func (d *eventDispatcher) safeExecute(ctx context.Context, evt *event.Event, info HandlerInfo) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			d.logError("Handler panic recovered",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", info.Name,
				"panic", r,
			)
		}
	}()

	return info.Handler(ctx, evt)
}

func (d *eventDispatcher) logInfo(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, kv...)
	}
}

func (d *eventDispatcher) logError(msg string, kv ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, kv...)
	}
}
