package ws

import (
	"sync"

	"github.com/gofiber/websocket/v2"
)

// Hub tracks which clients are attached to which room, for room-level
// broadcasts and online counts. Message delivery itself rides each client's
// own live subscription, not the hub.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Join(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]struct{})
	}
	h.rooms[roomID][c] = struct{}{}
}

func (h *Hub) Leave(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.rooms[roomID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) Online(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) Broadcast(roomID string, msg any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.Send(msg)
	}
}

// Presence announces a membership change to everyone still in the room.
type Presence struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Online int    `json:"online"`
}

// Announce broadcasts a joined/left event with the room's current online
// count.
func (h *Hub) Announce(roomID, event, userID string) {
	h.Broadcast(roomID, Presence{Type: event, UserID: userID, Online: h.Online(roomID)})
}

// Client wraps one websocket connection with a buffered outbound queue.
type Client struct {
	UserID string
	Conn   *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan any
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{UserID: userID, Conn: conn, send: make(chan any, 16)}
}

// Send queues msg for the write pump, dropping it if the client is not
// keeping up. A snapshot arriving after Close is dropped too; listener
// callbacks can outlive the connection.
func (c *Client) Send(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// WritePump drains the queue onto the connection. Runs until Close.
func (c *Client) WritePump() {
	for msg := range c.send {
		if err := c.Conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// Close is idempotent and safe against concurrent Send.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
