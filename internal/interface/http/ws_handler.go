package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-realtime-relay/internal/relay"
)

// WSHandler upgrades HTTP requests to WebSocket connections and hands them to
// the relay hub.
type WSHandler struct {
	Hub      *relay.Hub
	Logger   *logrus.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *relay.Hub, logger *logrus.Logger, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WSHandler{
		Hub:    hub,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// No configured origins means local development: accept all.
				if len(allowed) == 0 {
					return true
				}
				return allowed[r.Header.Get("Origin")]
			},
		},
	}
}

// Connect GET /ws
func (h *WSHandler) Connect(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.Logger.WithError(err).Debug("websocket upgrade failed")
		return
	}
	h.Hub.HandleConnection(conn)
}
