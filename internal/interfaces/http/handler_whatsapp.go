package http

import (
	"errors"
	"net/http"
	"strconv"
	"whatsapp_crm/internal/usecases"

	"github.com/gin-gonic/gin"
)

type instanceRequest struct {
	InstanceName string `json:"instanceName"`
}

func (h *Handler) bindInstanceName(c *gin.Context) (string, bool) {
	var req instanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.InstanceName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Instance name is required"})
		return "", false
	}
	if !ValidInstanceName(req.InstanceName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid instance name"})
		return "", false
	}
	return req.InstanceName, true
}

func (h *Handler) queryInstanceName(c *gin.Context) (string, bool) {
	name := c.Query("instanceName")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Instance name is required"})
		return "", false
	}
	if !ValidInstanceName(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid instance name"})
		return "", false
	}
	return name, true
}

func (h *Handler) CreateInstance(c *gin.Context) {
	name, ok := h.bindInstanceName(c)
	if !ok {
		return
	}
	created, err := h.whatsapp.CreateInstance(c.Request.Context(), name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

// GetInstance serves ?action=qr and ?action=status.
func (h *Handler) GetInstance(c *gin.Context) {
	name, ok := h.queryInstanceName(c)
	if !ok {
		return
	}
	switch c.Query("action") {
	case "qr":
		qr, err := h.whatsapp.GetQRCode(c.Request.Context(), name)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, qr)
	case "status":
		status, err := h.whatsapp.GetStatus(c.Request.Context(), name)
		if err != nil {
			h.respondError(c, err)
			return
		}
		// A nil status marshals to null for an unknown instance.
		c.JSON(http.StatusOK, status)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid action"})
	}
}

func (h *Handler) GetInstanceQRPNG(c *gin.Context) {
	name, ok := h.queryInstanceName(c)
	if !ok {
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "256"))
	if size < 64 || size > 1024 {
		size = 256
	}
	png, err := h.whatsapp.QRCodePNG(c.Request.Context(), name, size)
	if errors.Is(err, usecases.ErrNoQRCode) {
		c.String(http.StatusAccepted, "QR code not yet available. Please wait...")
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) DeleteInstance(c *gin.Context) {
	name, ok := h.queryInstanceName(c)
	if !ok {
		return
	}
	if err := h.whatsapp.DeleteInstance(c.Request.Context(), name); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) ConfigureWebhook(c *gin.Context) {
	name, ok := h.bindInstanceName(c)
	if !ok {
		return
	}
	res, err := h.whatsapp.ConfigureWebhook(c.Request.Context(), name)
	switch {
	case errors.Is(err, usecases.ErrAppURLMissing):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.Is(err, usecases.ErrLocalWebhookURL):
		c.JSON(http.StatusOK, gin.H{
			"success":    false,
			"error":      "Localhost webhook URLs are not supported. Use a public APP_URL.",
			"webhookUrl": res.WebhookURL,
		})
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":      false,
			"error":        err.Error(),
			"webhookUrl":   res.WebhookURL,
			"instanceName": res.InstanceName,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"message":      "Webhook configured successfully",
			"webhookUrl":   res.WebhookURL,
			"instanceName": res.InstanceName,
		})
	}
}

func (h *Handler) ListInstances(c *gin.Context) {
	instances, err := h.whatsapp.ListInstances(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if instances == nil {
		c.JSON(http.StatusOK, gin.H{"instances": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"instances": instances})
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req usecases.SendMessageInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	req.Content = TruncateString(SanitizeString(req.Content), MaxMessageLength)

	msg, err := h.whatsapp.SendMessage(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}
