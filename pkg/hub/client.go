package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/irislabs/go-iris/internal/log"
)

// Per-connection tuning. Preview frames dominate the traffic, so the
// read limit and send buffer are sized for JPEG payloads rather than
// small JSON status updates.
const (
	// writeWait bounds a single outbound frame write.
	writeWait = 10 * time.Second

	// pongWait is how long a silent peer counts as alive.
	pongWait = 60 * time.Second

	// pingPeriod must fire before pongWait expires.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames; subscribers only send pongs.
	maxMessageSize = 512 * 1024

	// sendBuffer is how many outbound messages may queue before the
	// hub drops the client as too slow.
	sendBuffer = 256
)

// Client is one websocket subscriber of a hub stream.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Message
}

// NewClient registers a new subscriber with the hub.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	client := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan Message, sendBuffer),
	}
	hub.register <- client
	return client
}

// Run pumps messages until the connection closes. Call from the
// websocket handler; it blocks for the connection's lifetime.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// readPump drains inbound frames. Subscribers send nothing we act on,
// but reading is what surfaces pongs and disconnects.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			log.Debug("hub client read ended", "hub", c.hub.name, "error", err)
			return
		}
	}
}

// writePump is the only writer on the connection: queued messages go
// out in order, with pings keeping the peer awake in between.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub dropped us; close the stream properly.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			wsType := websocket.TextMessage
			if message.Type == BinaryMessage {
				wsType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(wsType, message.Data); err != nil {
				log.Debug("hub client write failed", "hub", c.hub.name, "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
