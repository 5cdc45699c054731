package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-realtime-relay/internal/application"
	"github.com/oksasatya/go-realtime-relay/pkg/response"
)

// MessageHandler exposes the operator-facing message search backed by
// Elasticsearch. The relay itself never reads through this path.
type MessageHandler struct {
	Svc    *application.ChatService
	Logger *logrus.Logger
}

func NewMessageHandler(svc *application.ChatService, logger *logrus.Logger) *MessageHandler {
	return &MessageHandler{Svc: svc, Logger: logger}
}

// Search GET /api/messages/search?q=...&size=...
func (h *MessageHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.Search(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Warn("message search failed")
		response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results")
}
