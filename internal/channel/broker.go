package channel

import (
	"log"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

// DefaultInboxSize bounds the per-participant queue
const DefaultInboxSize = 256

// Endpoint is one participant on a named channel. Implementations deliver
// inbound messages on their own goroutine, in the order the transport
// received them.
type Endpoint interface {
	Name() string
	// Send is fire-and-forget. It only fails for messages outside the protocol.
	Send(msg Message) error
	// OnMessage registers a handler and returns a function that removes it
	OnMessage(handler func(Message)) func()
	Close() error
	Closed() bool
}

// PeerCounter is implemented by endpoints that know who else is listening
type PeerCounter interface {
	Peers() int
}

// BrokerOption configures a Broker
type BrokerOption func(*Broker)

// WithInboxSize sets the per-handle queue length
func WithInboxSize(n int) BrokerOption {
	return func(b *Broker) {
		if n > 0 {
			b.inboxSize = n
		}
	}
}

// Broker joins in-process handles that opened the same channel name
type Broker struct {
	mu        sync.Mutex
	channels  map[string]map[uuid.UUID]*Handle
	inboxSize int
}

// NewBroker creates a new broker
func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		channels:  make(map[string]map[uuid.UUID]*Handle),
		inboxSize: DefaultInboxSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open joins the named channel. Every call returns a new participant.
func (b *Broker) Open(name string) *Handle {
	h := &Handle{
		id:     uuid.New(),
		name:   name,
		broker: b,
		inbox:  make(chan Message, b.inboxSize),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	members, ok := b.channels[name]
	if !ok {
		members = make(map[uuid.UUID]*Handle)
		b.channels[name] = members
	}
	members[h.id] = h
	b.mu.Unlock()

	go h.run()
	return h
}

// peers returns every open handle on name except self
func (b *Broker) peers(name string, self uuid.UUID) []*Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	members := b.channels[name]
	out := make([]*Handle, 0, len(members))
	for id, h := range members {
		if id != self {
			out = append(out, h)
		}
	}
	return out
}

func (b *Broker) leave(h *Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members := b.channels[h.name]
	delete(members, h.id)
	if len(members) == 0 {
		delete(b.channels, h.name)
	}
}

type messageHandler struct {
	id uuid.UUID
	fn func(Message)
}

// Handle is an in-process Endpoint
type Handle struct {
	id     uuid.UUID
	name   string
	broker *Broker
	inbox  chan Message

	mu       sync.RWMutex
	handlers []messageHandler
	closed   bool

	done      chan struct{}
	closeOnce sync.Once
}

var _ Endpoint = (*Handle)(nil)
var _ PeerCounter = (*Handle)(nil)

// ID returns the participant ID
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Name returns the channel name
func (h *Handle) Name() string {
	return h.name
}

// Send delivers msg to every other participant listening right now.
// Without a listener the message is dropped, not queued.
func (h *Handle) Send(msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if h.Closed() {
		return nil
	}
	for _, peer := range h.broker.peers(h.name, h.id) {
		peer.enqueue(msg)
	}
	return nil
}

func (h *Handle) enqueue(msg Message) {
	select {
	case <-h.done:
	case h.inbox <- msg:
	default:
		log.Printf("Channel %s: inbox full, dropping %s", h.name, msg.Cmd)
	}
}

// OnMessage registers a handler for inbound messages
func (h *Handle) OnMessage(handler func(Message)) func() {
	id := uuid.New()
	h.mu.Lock()
	h.handlers = append(h.handlers, messageHandler{id: id, fn: handler})
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, mh := range h.handlers {
			if mh.id == id {
				h.handlers = append(h.handlers[:i:i], h.handlers[i+1:]...)
				return
			}
		}
	}
}

// Peers returns how many other participants are on the channel
func (h *Handle) Peers() int {
	return len(h.broker.peers(h.name, h.id))
}

// Close leaves the channel. Further sends are dropped and no handler runs.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.handlers = nil
		h.mu.Unlock()
		close(h.done)
		h.broker.leave(h)
	})
	return nil
}

// Closed reports whether Close was called
func (h *Handle) Closed() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closed
}

func (h *Handle) run() {
	for {
		select {
		case msg := <-h.inbox:
			h.deliver(msg)
		case <-h.done:
			return
		}
	}
}

func (h *Handle) deliver(msg Message) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	handlers := make([]messageHandler, len(h.handlers))
	copy(handlers, h.handlers)
	h.mu.RUnlock()

	for _, mh := range handlers {
		dispatch(h.name, mh.fn, msg)
	}
}

// dispatch isolates a panicking message handler
func dispatch(name string, fn func(Message), msg Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Channel %s: handler panic for %s: %v\nStack: %s", name, msg.Cmd, r, debug.Stack())
		}
	}()
	fn(msg)
}
