// server/internal/api/handlers/websocket_handler.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"smartbin-api-server/internal/api/middleware"
	"smartbin-api-server/internal/socket"
)

// Maximum wait for the next client frame before the connection is dropped.
const pongWait = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler streams alert events to dashboards. The caller is
// already authenticated by the middleware.
type WebSocketHandler struct {
	Hub *socket.Hub
	Log zerolog.Logger
}

func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	userID := middleware.UserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn().Err(err).Str("user_id", userID).Msg("failed to upgrade connection")
		return
	}

	connID := h.Hub.Register(userID, conn)
	defer func() {
		h.Hub.Unregister(connID)
		conn.Close()
	}()

	// Client pings keep the connection alive; gorilla answers with pong.
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.Log.Debug().Err(err).Str("user_id", userID).Msg("unexpected websocket close")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
