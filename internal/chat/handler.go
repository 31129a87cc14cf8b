package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"verisight-backend/internal/shared/server/middleware"
	"verisight-backend/internal/shared/server/respond"
	"verisight-backend/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the assistant endpoint. The group should run optional auth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat", h.chat)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_body", "Invalid request body")
		return
	}
	reply, err := h.Svc.Reply(c.Request.Context(), middleware.UserIDFromContext(c), req.Message)
	if err != nil {
		telemetry.Error("chat.reply_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"error":      err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal", "Internal server error")
		return
	}
	respond.OK(c, gin.H{"reply": reply})
}
