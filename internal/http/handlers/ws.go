package handlers

import (
	"log"
	"net/http"
	"os"

	"goodbomb/internal/service"
	"goodbomb/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WS handles GET /ws: upgrades the connection and streams committed state
// snapshots. The token travels in the query string because browser WebSocket
// clients cannot set headers.
func (h *Handler) WS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
		return
	}

	playerID, err := service.ParseJWT(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	allowedOrigin := os.Getenv("ALLOWED_ORIGIN")
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("ws upgrade error:", err)
		return
	}

	client := ws.NewClient(playerID, conn, h.Hub)
	go client.Run(RenderState(h.Engine.Store().Snapshot()))
}
