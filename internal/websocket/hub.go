package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub tracks connected players.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("player connected", "user_id", c.userID)
}

// Unregister removes a client and closes its send channel. Safe to repeat.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Notify sends a notice frame to every player. Players with a full
// buffer miss it.
func (h *Hub) Notify(message string) {
	data, err := json.Marshal(Response{Kind: KindNotice, Message: message})
	if err != nil {
		h.logger.Error("marshal notice", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PlayerCount returns the number of distinct users connected.
func (h *Hub) PlayerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[int64]struct{}, len(h.clients))
	for c := range h.clients {
		seen[c.userID] = struct{}{}
	}
	return len(seen)
}
