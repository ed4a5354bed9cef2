package http

import (
	"net/http"
	"whatsapp_crm/internal/entities"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetMetrics(c *gin.Context) {
	m, err := h.dashboard.Metrics(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) ListChats(c *gin.Context) {
	chats, err := h.dashboard.ListChats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

func (h *Handler) GetChatMessages(c *gin.Context) {
	id := c.Param("id")
	if !ValidUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat id"})
		return
	}
	msgs, err := h.dashboard.ChatMessages(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) UpdateChatStatus(c *gin.Context) {
	id := c.Param("id")
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !ValidUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	chat, err := h.dashboard.UpdateChatStatus(c.Request.Context(), id, entities.ChatStatus(req.Status))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (h *Handler) ListQuotes(c *gin.Context) {
	quotes, err := h.dashboard.ListQuotes(c.Request.Context(), entities.QuoteStatus(c.Query("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quotes)
}

func (h *Handler) GetQuote(c *gin.Context) {
	id := c.Param("id")
	if !ValidUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quote id"})
		return
	}
	q, err := h.dashboard.GetQuote(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *Handler) UpdateQuoteStatus(c *gin.Context) {
	id := c.Param("id")
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !ValidUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	q, err := h.dashboard.UpdateQuoteStatus(c.Request.Context(), id, entities.QuoteStatus(req.Status))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *Handler) ListProducts(c *gin.Context) {
	f := entities.ProductFilter{
		Category:   c.Query("category"),
		SearchTerm: TruncateString(SanitizeString(c.Query("q")), MaxSearchTermLength),
		Limit:      ParseLimit(c.Query("limit"), MaxProductLimit),
	}
	products, err := h.dashboard.ListProducts(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}
