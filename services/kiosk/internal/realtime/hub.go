package realtime

import (
	"encoding/json"
	"sync"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"github.com/google/uuid"
)

const clientBuffer = 64

// Message is one event as delivered to clients. An empty Room means every
// connected client.
type Message struct {
	Room    string          `json:"room,omitempty"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is a registered receiver, a WebSocket connection or a gRPC stream.
type Client struct {
	id    string
	rooms map[string]struct{}
	send  chan Message
}

func (c *Client) ID() string {
	return c.id
}

// Messages is closed when the client is unregistered.
func (c *Client) Messages() <-chan Message {
	return c.send
}

func (c *Client) in(room string) bool {
	if room == "" {
		return true
	}
	_, ok := c.rooms[room]
	return ok
}

// Hub fans messages out to the clients connected to this process.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  core.Logger
}

func NewHub(logger core.Logger) *Hub {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger.With("component", "RealtimeHub"),
	}
}

func (h *Hub) Register(rooms ...string) *Client {
	c := &Client{
		id:    uuid.NewString(),
		rooms: make(map[string]struct{}, len(rooms)),
		send:  make(chan Message, clientBuffer),
	}
	for _, r := range rooms {
		if r != "" {
			c.rooms[r] = struct{}{}
		}
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Debug("client registered", "client_id", c.id, "rooms", rooms)
	return c
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.logger.Debug("client unregistered", "client_id", c.id)
}

// Deliver never blocks: a client whose buffer is full misses the message.
func (h *Hub) Deliver(msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, c := range h.clients {
		if !c.in(msg.Room) {
			continue
		}
		select {
		case c.send <- msg:
			delivered++
		default:
			h.logger.Info("client buffer full, dropping event", "client_id", id, "event", msg.Event)
		}
	}
	return delivered
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}
