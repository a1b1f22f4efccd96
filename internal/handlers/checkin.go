package handlers

import (
	"net/http"

	"ovation/internal/models"

	"github.com/gin-gonic/gin"
)

// Checkin admits a booked ticket at the gate.
// POST /api/checkin
func (h *Handler) Checkin(c *gin.Context) {
	var req models.CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.services.Checkin.Checkin(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
