package channel

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// PathPrefix is where the relay serves named channels
const PathPrefix = "/channel/"

// RelayOptions configures a Relay
type RelayOptions struct {
	// Limit is the per-connection frame rate; zero disables limiting
	Limit rate.Limit
	Burst int
}

// Relay fans websocket frames out to every other connection on the same
// channel name, so participants in separate processes see the same
// semantics as handles on a Broker.
type Relay struct {
	opts     RelayOptions
	upgrader websocket.Upgrader
	mu       sync.Mutex
	rooms    map[string]map[*relayClient]struct{}
}

type relayClient struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	limiter *rate.Limiter
}

func (c *relayClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewRelay creates a relay handler
func NewRelay(opts RelayOptions) *Relay {
	return &Relay{
		opts: opts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]map[*relayClient]struct{}),
	}
}

func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	name, ok := strings.CutPrefix(req.URL.Path, PathPrefix)
	if !ok || name == "" {
		http.NotFound(w, req)
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Printf("Relay: websocket upgrade: %v", err)
		return
	}
	client := &relayClient{conn: conn}
	if r.opts.Limit > 0 {
		burst := r.opts.Burst
		if burst <= 0 {
			burst = 1
		}
		client.limiter = rate.NewLimiter(r.opts.Limit, burst)
	}
	r.join(name, client)

	defer func() {
		r.leave(name, client)
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if client.limiter != nil && !client.limiter.Allow() {
			log.Printf("Relay %s: rate limit exceeded, dropping frame", name)
			continue
		}
		msg, err := Decode(data)
		if err != nil {
			log.Printf("Relay %s: skipping frame: %v", name, err)
			continue
		}
		for _, peer := range r.peers(name, client) {
			if err := peer.write(data); err != nil {
				log.Printf("Relay %s: write %s: %v", name, msg.Cmd, err)
			}
		}
	}
}

// Peers returns the number of connections on name
func (r *Relay) Peers(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[name])
}

func (r *Relay) join(name string, c *relayClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[name]
	if !ok {
		room = make(map[*relayClient]struct{})
		r.rooms[name] = room
	}
	room[c] = struct{}{}
}

func (r *Relay) leave(name string, c *relayClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := r.rooms[name]
	delete(room, c)
	if len(room) == 0 {
		delete(r.rooms, name)
	}
}

func (r *Relay) peers(name string, self *relayClient) []*relayClient {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*relayClient, 0, len(r.rooms[name]))
	for c := range r.rooms[name] {
		if c != self {
			out = append(out, c)
		}
	}
	return out
}

// Conn is an Endpoint connected to a Relay
type Conn struct {
	name    string
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu       sync.RWMutex
	handlers []messageHandler
	closed   bool

	closeOnce sync.Once
}

var _ Endpoint = (*Conn)(nil)

// Dial joins the named channel on the relay at baseURL (ws:// or wss://)
func Dial(ctx context.Context, baseURL, name string) (*Conn, error) {
	target := strings.TrimRight(baseURL, "/") + PathPrefix + url.PathEscape(name)
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial channel %s: %w", target, err)
	}
	c := &Conn{name: name, ws: ws}
	go c.readLoop()
	return c, nil
}

// Name returns the channel name
func (c *Conn) Name() string {
	return c.name
}

// Send writes msg to the relay. A broken connection closes the endpoint
// and the message counts as dropped.
func (c *Conn) Send(msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}
	if c.Closed() {
		return nil
	}
	c.writeMu.Lock()
	err = c.ws.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		log.Printf("Channel %s: send %s failed, closing: %v", c.name, msg.Cmd, err)
		c.Close()
	}
	return nil
}

// OnMessage registers a handler for inbound messages
func (c *Conn) OnMessage(handler func(Message)) func() {
	id := uuid.New()
	c.mu.Lock()
	c.handlers = append(c.handlers, messageHandler{id: id, fn: handler})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, mh := range c.handlers {
			if mh.id == id {
				c.handlers = append(c.handlers[:i:i], c.handlers[i+1:]...)
				return
			}
		}
	}
}

// Close disconnects from the relay
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.handlers = nil
		c.mu.Unlock()

		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

// Closed reports whether the endpoint was closed
func (c *Conn) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !c.Closed() {
				log.Printf("Channel %s: connection lost: %v", c.name, err)
				c.Close()
			}
			return
		}
		msg, err := Decode(data)
		if err != nil {
			log.Printf("Channel %s: skipping frame: %v", c.name, err)
			continue
		}

		c.mu.RLock()
		if c.closed {
			c.mu.RUnlock()
			return
		}
		handlers := make([]messageHandler, len(c.handlers))
		copy(handlers, c.handlers)
		c.mu.RUnlock()

		for _, mh := range handlers {
			dispatch(c.name, mh.fn, msg)
		}
	}
}
