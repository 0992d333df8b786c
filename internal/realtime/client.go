package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// A 4000 character chat message plus its JSON frame fits.
	maxMessageSize = 32 << 10
)

// Client sits between one websocket connection and its room.
type Client struct {
	UserID string
	conn   *websocket.Conn
	send   chan []byte

	mu sync.Mutex
	r  *Room
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{UserID: userID, conn: conn, send: make(chan []byte, 64)}
}

func (c *Client) setRoom(r *Room) {
	c.mu.Lock()
	c.r = r
	c.mu.Unlock()
}

func (c *Client) room() *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.r
}

// Outbound exposes the queue WritePump drains. Closed when the client leaves.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// ReadPump feeds every inbound frame to onMessage until the connection drops,
// then leaves the hub.
func (c *Client) ReadPump(h *Hub, onMessage func(c *Client, message []byte)) {
	defer func() {
		h.Leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", "user_id", c.UserID, "error", err)
			}
			return
		}
		onMessage(c, message)
	}
}

// WritePump handles messages going to the peer. One goroutine per client.
func (c *Client) WritePump() {
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
				// The room closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
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
