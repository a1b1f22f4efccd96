package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"ovation/internal/models"

	"github.com/gin-gonic/gin"
)

var errMissingPaymentID = errors.New("paymentId is required")

// CreateEvent creates an event with its schedules and inventory.
// POST /api/events
func (h *Handler) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.services.Events.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListEvents lists or searches the catalog.
// GET /api/events?query=&page=&pageSize=
func (h *Handler) ListEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	resp, err := h.services.Events.List(c.Request.Context(), c.Query("query"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListEventUnits returns the configured inventory of one schedule.
// GET /api/events/:id/units?schedule_id=
func (h *Handler) ListEventUnits(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, err)
		return
	}
	scheduleID, err := strconv.ParseInt(c.Query("schedule_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	units, err := h.services.Events.Units(c.Request.Context(), eventID, scheduleID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, units)
}

// GetEvent returns one event.
// GET /api/events/:id
func (h *Handler) GetEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, err)
		return
	}

	event, err := h.services.Events.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}
