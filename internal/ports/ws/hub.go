package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// sendBuffer is the number of frames queued per connection before it is dropped as too slow.
const sendBuffer = 64

// Envelope is the frame format in both directions.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// client is one upgraded connection bound to a participant id.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(id string, conn *websocket.Conn) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// close asks the write pump to flush what is queued and shut the connection.
func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// Hub tracks connected participants and implements ports.Publisher for the ws transport.
// It never calls back into the coordinator, so it is safe to use while the coordinator
// holds its lock.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*client
	log     zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{clients: make(map[string]*client), log: logger}
}

// register binds c to its participant id. It fails if that id is already connected.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
}

// Connected reports the number of open connections.
func (h *Hub) Connected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish implements ports.Publisher. It never blocks: a connection whose buffer is full
// is closed instead.
func (h *Hub) Publish(ctx context.Context, recipients []string, event string, payload any) error {
	frame, err := encodeEnvelope(event, payload)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range recipients {
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case c.send <- frame:
		default:
			h.log.Warn().Str("participant", id).Str("event", event).Msg("send buffer full, dropping connection")
			c.close()
		}
	}
	return nil
}

// Evict implements ports.Publisher. Frames already queued are still delivered.
func (h *Hub) Evict(ctx context.Context, participantID string) error {
	h.mu.Lock()
	c, ok := h.clients[participantID]
	h.mu.Unlock()
	if ok {
		c.close()
	}
	return nil
}

func encodeEnvelope(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", event, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}
