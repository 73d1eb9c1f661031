package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the UI is served from the same process
	},
}

// HandleWebSocket upgrades the connection and registers it for library
// event broadcasts.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	if h.WS == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "WebSocket not enabled"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	h.WS.Register() <- conn

	go func() {
		// Drain client frames; unregister on close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.WS.Unregister() <- conn
				return
			}
		}
	}()
}
