package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/trustfund-platform/trustfund/internal/assistant"
)

// AssistantHandler serves the support chatbot endpoint.
type AssistantHandler struct {
	assistant *assistant.Assistant
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(a *assistant.Assistant) *AssistantHandler {
	return &AssistantHandler{assistant: a}
}

// Register mounts the assistant routes on the given router group.
func (h *AssistantHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/assistant/chat", h.Chat)
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Chat handles POST /assistant/chat.
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": h.assistant.Reply(req.Message)})
}
