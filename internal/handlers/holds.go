package handlers

import (
	"net/http"
	"strconv"

	"ovation/internal/models"

	"github.com/gin-gonic/gin"
)

// AcquireHold acquires a new hold or renews an existing one.
// POST /api/holds
func (h *Handler) AcquireHold(c *gin.Context) {
	var req models.AcquireHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.services.Holds.AcquireOrRenew(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ReleaseHold releases a hold. Always succeeds.
// POST /api/holds/release
func (h *Handler) ReleaseHold(c *gin.Context) {
	var req models.ReleaseHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.services.Holds.Release(c.Request.Context(), req.HoldCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Availability returns the remaining capacity per unit for a schedule.
// GET /api/availability?event_id=&schedule_id=
func (h *Handler) Availability(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Query("event_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	scheduleID, err := strconv.ParseInt(c.Query("schedule_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.services.Availability.Snapshot(c.Request.Context(), eventID, scheduleID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
