package http

import (
	"errors"
	"io"
	"net/http"
	"whatsapp_crm/internal/usecases"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EvolutionWebhook receives gateway events. Any well-formed body is
// acknowledged, even when storing it fails, so the gateway does not redeliver.
func (h *Handler) EvolutionWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unreadable body"})
		return
	}

	err = h.ingestion.HandleWebhook(c.Request.Context(), body)
	if errors.Is(err, usecases.ErrInvalidPayload) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON payload"})
		return
	}
	if err != nil {
		h.log.Error("evolution webhook", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) EvolutionWebhookStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "active", "service": "Evolution API Webhook Receiver"})
}

func (h *Handler) N8NWebhook(c *gin.Context) {
	if !h.automation.Authorized(c.GetHeader("X-Webhook-Secret")) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unreadable body"})
		return
	}

	err = h.automation.HandleInbound(c.Request.Context(), body)
	if errors.Is(err, usecases.ErrInvalidPayload) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err != nil {
		h.log.Error("n8n webhook", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) N8NWebhookStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "active", "message": "N8N Webhook endpoint is ready"})
}

// SendToAutomation forwards a message to n8n on behalf of the dashboard.
func (h *Handler) SendToAutomation(c *gin.Context) {
	var req struct {
		ChatID  string `json:"chatId" binding:"required"`
		Phone   string `json:"phone" binding:"required"`
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required fields"})
		return
	}
	msg := TruncateString(SanitizeString(req.Message), MaxMessageLength)
	if err := h.automation.SendMessageToAutomation(c.Request.Context(), req.ChatID, req.Phone, msg); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
