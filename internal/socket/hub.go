// server/internal/socket/hub.go
package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"smartbin-api-server/internal/models"
	"smartbin-api-server/internal/notify"
)

const writeWait = 5 * time.Second

// client is one dashboard connection. gorilla connections allow a single
// concurrent writer, hence the per-client mutex.
type client struct {
	userID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

func (c *client) write(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// Hub manages all websocket clients. A user may hold several connections.
type Hub struct {
	clients map[string]*client
	mu      sync.RWMutex
	log     zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		log:     log.With().Str("component", "socket").Logger(),
	}
}

// Register adds a connection and returns its id for Unregister.
func (h *Hub) Register(userID string, conn *websocket.Conn) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.clients[id] = &client{userID: userID, conn: conn}
	h.mu.Unlock()
	h.log.Info().Str("user_id", userID).Str("conn_id", id).Msg("websocket client registered")
	return id
}

func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[connID]; ok {
		delete(h.clients, connID)
		h.log.Info().Str("user_id", c.userID).Str("conn_id", connID).Msg("websocket client unregistered")
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends message to every connection and returns how many writes
// succeeded. Failed connections are left for their read loop to clean up.
func (h *Hub) Broadcast(message []byte) int {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.write(message); err != nil {
			h.log.Warn().Err(err).Str("user_id", c.userID).Msg("websocket write failed")
			continue
		}
		sent++
	}
	return sent
}

// Notify pushes the alert to all connected dashboards.
func (h *Hub) Notify(ctx context.Context, alert models.Alert) error {
	data, err := json.Marshal(notify.NewAlertEvent(alert))
	if err != nil {
		return fmt.Errorf("encode alert event: %w", err)
	}
	h.Broadcast(data)
	return nil
}
