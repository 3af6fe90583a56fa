package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/STARREPORTS/internal/notifications"
	"github.com/STARREPORTS/internal/rewrite"
	"github.com/STARREPORTS/internal/types"
	"github.com/gorilla/websocket"
)

// sendBuffer is the per-client and broadcast queue length
const sendBuffer = 256

// writeWait bounds a single websocket write
const writeWait = 10 * time.Second

// Client is one connected browser
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans messages out to connected browsers. Clients join and leave under
// the lock; Run delivers queued broadcasts until Stop.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	queue    chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a hub; call Run to start delivering
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		queue:   make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
	}
}

// Run delivers broadcasts; it returns after Stop
func (h *Hub) Run() {
	for {
		select {
		case message := <-h.queue:
			h.deliver(message)
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// deliver queues message on every client, dropping clients that are full
func (h *Hub) deliver(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			h.drop(client)
		}
	}
}

// drop removes client and closes its send channel; h.mu must be held
func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Stop ends Run and disconnects all clients
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a client. After Stop the client is closed right away.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		close(client.send)
	default:
		h.clients[client] = struct{}{}
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	h.drop(client)
	h.mu.Unlock()
}

// BroadcastJSON sends a JSON message to all clients. Messages are dropped
// when the broadcast buffer is full.
func (h *Hub) BroadcastJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[SERVER] Failed to marshal broadcast: %v", err)
		return
	}
	select {
	case h.queue <- data:
	default:
		log.Printf("[SERVER] Broadcast buffer full, dropping message")
	}
}

// BroadcastState sends the full state to all clients
func (h *Hub) BroadcastState(state *types.State) {
	h.BroadcastJSON(types.WSMessage{
		Type: types.WSTypeStateUpdate,
		Data: state,
	})
}

// BroadcastBanner sends the operator banner to all clients
func (h *Hub) BroadcastBanner(banner notifications.BannerState) {
	h.BroadcastJSON(types.WSMessage{
		Type: types.WSTypeBanner,
		Data: banner,
	})
}

// BroadcastStaged tells clients a rewrite is waiting for review
func (h *Hub) BroadcastStaged(staged rewrite.Staged) {
	h.BroadcastJSON(types.WSMessage{
		Type: types.WSTypeRewrite,
		Data: staged,
	})
}

// ClientCount returns number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump reads messages from the WebSocket until the browser goes away
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// writePump writes messages to the WebSocket
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
