package modules

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-realtime-relay/internal/container"
	handlers "github.com/oksasatya/go-realtime-relay/internal/interface/http"
	"github.com/oksasatya/go-realtime-relay/internal/interface/middleware"
)

type RelayModule struct {
	WS       *handlers.WSHandler
	Messages *handlers.MessageHandler
}

func NewRelayModule(ws *handlers.WSHandler, messages *handlers.MessageHandler) *RelayModule {
	return &RelayModule{WS: ws, Messages: messages}
}

func (m *RelayModule) Register(engine *gin.Engine, api *gin.RouterGroup) {
	// Cap upgrade attempts per IP; established sockets are unaffected.
	upgradeLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath())
	engine.GET("/ws", upgradeLimiter, m.WS.Connect)

	engine.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if pool := container.GetPGPool(); pool != nil {
			if err := pool.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	searchLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIPAndPath())
	api.GET("/messages/search", searchLimiter, m.Messages.Search)
}
