package websocket

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Event types
const (
	EventConnected   = "connected"
	EventAuthChanged = "auth_changed"
)

// Event is a message pushed to a dashboard connection
type Event struct {
	Type    string `json:"type"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
	UserID  string `json:"userId,omitempty"`
}

// Hub tracks every live connection per user. A user with several tabs open
// has one client per tab.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *logrus.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's event loop and closes every connection once ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for userID, set := range h.clients {
				for client := range set {
					close(client.send)
				}
				delete(h.clients, userID)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

// add returns false once the hub has stopped
func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) drop(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
}

// ConnectionCount returns the number of live connections for a user
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// SendToUser queues event on every connection of the user. Connections whose
// buffer is full are skipped; they re-check their session on reconnect anyway.
func (h *Hub) SendToUser(userID string, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for client := range h.clients[userID] {
		select {
		case client.send <- event:
			sent++
		default:
			h.logger.WithField("userId", userID).Warn("Dropping event for slow websocket client")
		}
	}
	return sent
}

// NotifyAuthChange tells every open dashboard of the user to re-check its session
func (h *Hub) NotifyAuthChange(userID, reason string) {
	sent := h.SendToUser(userID, Event{
		Type:    EventAuthChanged,
		Reason:  reason,
		Message: "Your session has changed",
	})
	if sent > 0 {
		h.logger.WithFields(logrus.Fields{
			"userId":      userID,
			"reason":      reason,
			"connections": sent,
		}).Debug("Auth change pushed")
	}
}
