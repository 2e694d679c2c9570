package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stream upgrades the connection and registers it for in-app notification
// pushes. The connection is held open until the client closes it.
func (h *Handler) Stream(c *gin.Context) {
	recipientID, err := uuid.Parse(c.Query("recipient_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient_id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Websocket upgrade failed for recipient %s: %v", recipientID, err)
		return
	}

	h.hub.Register(recipientID, conn)
	h.logger.Infof("Websocket connected: recipient %s", recipientID)

	defer func() {
		h.hub.Unregister(recipientID, conn)
		conn.Close()
		h.logger.Infof("Websocket disconnected: recipient %s", recipientID)
	}()

	// Drain reads so we notice the close frame. Pushes happen via the hub.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
