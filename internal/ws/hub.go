// Package ws streams inventory publications to dashboard clients over
// WebSocket. Each client joins the room of the tenant named in its token
// and only ever receives that tenant's events.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

const sendBuffer = 64

// Client represents a connected WebSocket client.
type Client struct {
	conn     *websocket.Conn
	tenantID string
	send     chan Message
	logger   *zap.Logger
}

// Hub tracks connected clients by tenant room.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Register adds a client to its tenant's room.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.tenantID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.tenantID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", zap.String("tenant_id", c.tenantID))
}

// Unregister removes a client from its room and closes its send channel.
// Empty rooms are dropped.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if room, ok := h.rooms[c.tenantID]; ok {
		if _, ok := room[c]; ok {
			delete(room, c)
			close(c.send)
			if len(room) == 0 {
				delete(h.rooms, c.tenantID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("websocket client disconnected", zap.String("tenant_id", c.tenantID))
}

// Broadcast sends a message to every client in tenantID's room. A client
// whose buffer is full misses the message; the next publication carries
// the full state again.
func (h *Hub) Broadcast(tenantID string, msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.rooms[tenantID] {
		select {
		case c.send <- msg:
			delivered++
		default:
			h.logger.Warn("client send buffer full, dropping message",
				zap.String("tenant_id", tenantID),
				zap.String("type", string(msg.Type)))
		}
	}
	return delivered
}

// ClientCount returns the number of connected clients across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, room := range h.rooms {
		n += len(room)
	}
	return n
}

// RoomSize returns the number of clients subscribed to tenantID.
func (h *Hub) RoomSize(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tenantID])
}

// writePump sends messages from the client's send channel to the WebSocket.
func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, c.conn, msg)
			cancel()
			if err != nil {
				c.logger.Debug("websocket write error", zap.Error(err))
				return
			}
		}
	}
}

// readPump drains client frames until the connection closes. Clients do
// not send anything meaningful.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}
