package websocket

import (
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// HandleLiveFeed serves one subscriber of the storefront activity feed.
// The feed is read-only and public: clients receive events, anything they
// send is discarded. The read loop exists to detect disconnects.
func HandleLiveFeed(c *websocket.Conn, hub *Hub) {
	defer func() {
		_ = c.Close()
	}()

	conn := &Connection{
		ID:   uuid.New().String(),
		Conn: c,
		Send: make(chan []byte, 256),
	}

	hub.RegisterConnection(conn)

	// Handle outgoing messages
	go func() {
		for message := range conn.Send {
			if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
		}
		_ = c.WriteMessage(websocket.CloseMessage, []byte{})
	}()

	// Drain incoming frames until the client goes away
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}

	hub.UnregisterConnection(conn)
}
