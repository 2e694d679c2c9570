package inapp

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"hr-reminder-service/internal/logging"
)

// Event is the payload pushed to connected dashboard clients.
type Event struct {
	NotificationID uuid.UUID `json:"notification_id"`
	ItemID         uuid.UUID `json:"item_id"`
	Type           string    `json:"type"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

// Hub fans in-app notifications out to the websocket connections of each
// recipient. A recipient with no open connection simply keeps the stored
// notification row; delivery here is best effort.
type Hub struct {
	mu     sync.RWMutex
	conns  map[uuid.UUID]map[*websocket.Conn]struct{}
	logger *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		conns:  make(map[uuid.UUID]map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

// Register attaches a connection to a recipient's stream.
func (h *Hub) Register(recipientID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[recipientID] == nil {
		h.conns[recipientID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[recipientID][conn] = struct{}{}
}

// Unregister detaches and closes a connection.
func (h *Hub) Unregister(recipientID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[recipientID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, recipientID)
		}
	}
	_ = conn.Close()
}

// Publish pushes an event to every open connection of the recipient. Dead
// connections are dropped on write failure.
func (h *Hub) Publish(recipientID uuid.UUID, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Errorf("Failed to marshal in-app event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns[recipientID] {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warnf("Dropping dead in-app connection for recipient %s: %v", recipientID, err)
			delete(h.conns[recipientID], conn)
			_ = conn.Close()
		}
	}
	if len(h.conns[recipientID]) == 0 {
		delete(h.conns, recipientID)
	}
}

// Connections reports the number of open connections for a recipient.
func (h *Hub) Connections(recipientID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[recipientID])
}
