package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection represents one authenticated client. It belongs to at most one
// campaign room at a time; the transport owns it and all membership state is
// torn down exactly once on disconnect.
type Connection struct {
	ID       string
	UserID   uuid.UUID
	UserName string

	conn    *websocket.Conn
	Send    chan []byte
	manager *Manager

	mu         sync.RWMutex
	campaignID *uuid.UUID
	gm         bool

	closeOnce sync.Once

	ConnectedAt time.Time
	LastPing    time.Time
}

// Campaign returns the joined campaign id, or nil when roomless.
func (c *Connection) Campaign() *uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.campaignID == nil {
		return nil
	}
	id := *c.campaignID
	return &id
}

// IsGM reports whether the connection joined its current room as the
// campaign owner. The role is fixed at join time.
func (c *Connection) IsGM() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.campaignID != nil && c.gm
}

func (c *Connection) setRoom(campaignID *uuid.UUID, gm bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.campaignID = campaignID
	c.gm = gm
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.manager.dropConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.manager.dropConnection(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.manager.handleClientMessage(c, message)
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}
