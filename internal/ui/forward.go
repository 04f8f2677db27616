package ui

import (
	"log"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"pagewise/internal/domain"
	"pagewise/internal/eventbus"
)

// EventMsg wraps a domain event for the UI
type EventMsg struct {
	Event domain.Event
}

// ViewTopics are the bus topics the UI renders from
var ViewTopics = []domain.EventType{
	domain.EventPageChanged,
	domain.EventNumPagesChanged,
	domain.EventScaleChanged,
	domain.EventSearchState,
	domain.EventSearchCleared,
	domain.EventHighlightsChanged,
	domain.EventDocumentLoading,
	domain.EventDocumentLoaded,
	domain.EventDocumentLoadFailed,
}

// Forwarder moves bus events onto the Bubble Tea program. The bus delivers
// synchronously, so events are queued and sent from a separate goroutine.
type Forwarder struct {
	bus    eventbus.EventBus
	events chan domain.Event
	subs   []eventbus.Subscription

	mu     sync.Mutex
	closed bool
}

// NewForwarder subscribes to ViewTopics on bus
func NewForwarder(bus eventbus.EventBus, buffer int) *Forwarder {
	f := &Forwarder{
		bus:    bus,
		events: make(chan domain.Event, buffer),
	}
	for _, t := range ViewTopics {
		f.subs = append(f.subs, bus.Subscribe(t, eventbus.Func(f.enqueue)))
	}
	return f
}

func (f *Forwarder) enqueue(e domain.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.events <- e:
	default:
		log.Printf("Event channel full, dropping %s", e.Type())
	}
}

// Run sends queued events to p until Stop is called
func (f *Forwarder) Run(p interface{ Send(tea.Msg) }) {
	for e := range f.events {
		p.Send(EventMsg{Event: e})
	}
}

// Stop unsubscribes and ends Run
func (f *Forwarder) Stop() {
	for _, sub := range f.subs {
		f.bus.Unsubscribe(sub)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
}
