package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// Hub maps userID -> websocket clients and fans incoming events out to them.
// Each client carries its own topic filter, so one user can hold separate
// subscriptions for matches and conversations.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint64]map[*Client]struct{}
	totalConns int
	log        *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		conns: make(map[uint64]map[*Client]struct{}),
		log:   log,
	}
}

// Register attaches a connection for userID, subscribed to the given topics.
// An empty topic list subscribes to everything.
func (h *Hub) Register(userID uint64, conn *websocket.Conn, topics []Topic) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}

	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, errors.New("user connection limit reached")
	}

	client := newClient(h, conn, userID, topics)
	m[client] = struct{}{}
	h.totalConns++

	go client.writePump()
	return client, nil
}

// Unregister removes a client; closing the connection is the caller's job.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.conns[client.userID]; ok {
		if _, exists := m[client]; exists {
			delete(m, client)
			h.totalConns--
		}
		if len(m) == 0 {
			delete(h.conns, client.userID)
		}
	}
}

// Broadcast delivers payload to every connection of userID subscribed to
// topic. Slow consumers are skipped: a dropped event is recovered by the
// client's next fetch, so delivery never blocks the publisher.
func (h *Hub) Broadcast(userID uint64, topic Topic, payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.conns[userID]
	if !ok {
		return
	}
	data := []byte(payload)
	for c := range clients {
		if c.subscribed(topic) {
			c.trySend(data)
		}
	}
}

// ConnCount reports the number of live connections for userID.
func (h *Hub) ConnCount(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// StartWiring bridges the Redis pattern subscriber into this hub, so events
// published on any engine instance reach clients connected to this one.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		userID, topic, ok := ParseChannel(channel)
		if !ok {
			if h.log != nil {
				h.log.Warn("unroutable realtime channel", "channel", channel)
			}
			return
		}
		h.Broadcast(userID, topic, payload)
	})
}

// Shutdown closes every connection gracefully.
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.conns {
		for client := range clients {
			client.close()
			if h.log != nil {
				h.log.Debug("closed realtime connection", "user_id", userID)
			}
		}
	}
	h.conns = make(map[uint64]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
