package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
)

// Client is one websocket subscriber. Writes go through a buffered channel
// drained by writePump; a full buffer drops the event instead of blocking
// the hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uint64
	topics map[Topic]struct{} // empty means all topics

	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

func newClient(h *Hub, conn *websocket.Conn, userID uint64, topics []Topic) *Client {
	ts := make(map[Topic]struct{}, len(topics))
	for _, t := range topics {
		ts[t] = struct{}{}
	}
	return &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		topics: ts,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *Client) subscribed(t Topic) bool {
	if len(c.topics) == 0 {
		return true
	}
	_, ok := c.topics[t]
	return ok
}

// trySend enqueues data without blocking; drops on a full buffer.
func (c *Client) trySend(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) writePump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}
}

// ReadLoop drains incoming frames until the peer disconnects. The engine has
// no client-to-server protocol on this socket; reading is only how we notice
// the close.
func (c *Client) ReadLoop() {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "closing"))
		close(c.done)
	})
}
