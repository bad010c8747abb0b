package websocket

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"cloudmart/metrics"
)

// Connection represents one subscriber to the storefront feed
type Connection struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// Hub fans storefront events out to every connected client. There is a
// single topic; everyone sees everything.
type Hub struct {
	connections map[string]*Connection
	register    chan *Connection
	unregister  chan *Connection
	broadcast   chan []byte
	mu          sync.RWMutex
	done        chan struct{}
}

// NewHub creates a new Hub instance for managing WebSocket connections
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan []byte, 64),
		done:        make(chan struct{}),
	}
}

// Close gracefully shuts down the hub and releases underlying resources.
func (h *Hub) Close() {
	h.mu.Lock()
	select {
	case <-h.done:
		// already closed
	default:
		close(h.done)
	}
	h.mu.Unlock()
}

// RegisterConnection schedules a connection to be added to the hub.
func (h *Hub) RegisterConnection(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

// UnregisterConnection schedules a connection to be removed from the hub.
func (h *Hub) UnregisterConnection(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish broadcasts an event to all connected clients. It never blocks
// the caller: if the hub is saturated or not running the event is dropped.
func (h *Hub) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
	}
}

// Run starts the Hub's main event loop for managing connections and broadcasts
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			count := len(h.connections)
			h.mu.Unlock()
			metrics.UpdateWebSocketConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, exists := h.connections[conn.ID]; exists {
				delete(h.connections, conn.ID)
				close(conn.Send)
			}
			count := len(h.connections)
			h.mu.Unlock()
			metrics.UpdateWebSocketConnections(count)

		case data := <-h.broadcast:
			h.mu.Lock()
			for id, conn := range h.connections {
				select {
				case conn.Send <- data:
				default:
					// Slow consumer, drop it
					close(conn.Send)
					delete(h.connections, id)
				}
			}
			count := len(h.connections)
			h.mu.Unlock()
			metrics.UpdateWebSocketConnections(count)
		}
	}
}

// ConnectionCount returns the number of currently connected clients
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		close(conn.Send)
		delete(h.connections, id)
	}
	metrics.UpdateWebSocketConnections(0)
}
