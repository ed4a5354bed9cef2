package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) DBHealth(c *gin.Context) {
	c.JSON(http.StatusOK, h.health.CheckDatabase(c.Request.Context()))
}

func (h *Handler) EvolutionHealth(c *gin.Context) {
	res := h.health.CheckEvolution(c.Request.Context())
	status := http.StatusOK
	if !res.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, res)
}
