package eventbus

import (
	"fmt"
	"log"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"pagewise/internal/domain"
)

// Re-export domain types for convenience
type Event = domain.Event
type EventType = domain.EventType
type HandlerError = domain.HandlerError

// Handler handles one published event. A returned error is reported to the
// error hook and does not stop delivery to other handlers.
type Handler func(Event) error

// Subscription identifies one registration
type Subscription struct {
	Type EventType
	ID   uuid.UUID
}

// Valid reports whether s came from Subscribe
func (s Subscription) Valid() bool {
	return s.ID != uuid.Nil
}

// EventBus is the interface components receive by injection
type EventBus interface {
	Publish(event Event)
	Subscribe(eventType EventType, handler Handler) Subscription
	Unsubscribe(sub Subscription)
}

// Option configures a Bus
type Option func(*Bus)

// WithErrorHook replaces the default log-based error reporting
func WithErrorHook(hook func(*HandlerError)) Option {
	return func(b *Bus) {
		b.onError = hook
	}
}

// WithVerbose logs every publish
func WithVerbose(v bool) Option {
	return func(b *Bus) {
		b.verbose = v
	}
}

type registration struct {
	id      uuid.UUID
	handler Handler
}

// Bus delivers events synchronously, in registration order
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]registration
	closed   bool
	verbose  bool
	onError  func(*HandlerError)
}

var _ EventBus = (*Bus)(nil)

// New creates a new event bus
func New(opts ...Option) *Bus {
	b := &Bus{
		handlers: make(map[EventType][]registration),
		onError:  logHandlerError,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish invokes every handler currently registered for the event's type
func (b *Bus) Publish(event Event) {
	if event == nil {
		return
	}
	eventType := event.Type()

	// Make a copy so handlers can subscribe or unsubscribe while running
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	regs := make([]registration, len(b.handlers[eventType]))
	copy(regs, b.handlers[eventType])
	b.mu.RUnlock()

	if b.verbose && !quiet(eventType) {
		log.Printf("EventBus: Publishing event %s to %d handlers", eventType, len(regs))
	}

	for _, reg := range regs {
		if herr := b.call(eventType, reg.handler, event); herr != nil && b.onError != nil {
			b.onError(herr)
		}
	}
}

// call runs one handler and converts failures into a HandlerError
func (b *Bus) call(eventType EventType, h Handler, event Event) (herr *HandlerError) {
	defer func() {
		if r := recover(); r != nil {
			herr = &HandlerError{
				Type:  eventType,
				Err:   fmt.Errorf("panic: %v", r),
				Panic: r,
				Stack: debug.Stack(),
			}
		}
	}()
	if err := h(event); err != nil {
		return &HandlerError{Type: eventType, Err: err}
	}
	return nil
}

// Subscribe registers handler for eventType and returns its handle
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || handler == nil {
		return Subscription{Type: eventType}
	}
	sub := Subscription{Type: eventType, ID: uuid.New()}
	b.handlers[eventType] = append(b.handlers[eventType], registration{id: sub.ID, handler: handler})
	return sub
}

// Unsubscribe removes exactly the registration behind sub. Unknown handles are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	if !sub.Valid() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[sub.Type]
	for i, reg := range regs {
		if reg.id != sub.ID {
			continue
		}
		// Copy instead of slicing in place; Publish may hold the old slice
		next := make([]registration, 0, len(regs)-1)
		next = append(next, regs[:i]...)
		next = append(next, regs[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, sub.Type)
		} else {
			b.handlers[sub.Type] = next
		}
		return
	}
}

// Len returns the number of live subscriptions for eventType
func (b *Bus) Len(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType])
}

// Close drops every subscription; later publishes are no-ops
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]registration)
	b.closed = true
}

// Func adapts a handler that cannot fail
func Func(fn func(Event)) Handler {
	return func(e Event) error {
		fn(e)
		return nil
	}
}

// quiet lists high-frequency events that are not worth logging
func quiet(t EventType) bool {
	switch t {
	case domain.EventPageChanged, domain.EventScaleChanged, domain.EventHighlightsChanged:
		return true
	}
	return false
}

func logHandlerError(herr *HandlerError) {
	if herr.Panic != nil {
		log.Printf("Event handler panic for %s: %v\nStack: %s", herr.Type, herr.Panic, herr.Stack)
		return
	}
	log.Printf("Event handler error for %s: %v", herr.Type, herr.Err)
}
