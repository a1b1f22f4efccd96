package handlers

import (
	"errors"
	"net/http"

	apperrors "ovation/internal/errors"
	"ovation/internal/logger"
	"ovation/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler wires the HTTP layer to the services.
type Handler struct {
	services *service.Services
}

func NewHandler(services *service.Services) *Handler {
	return &Handler{services: services}
}

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Units   []string `json:"units,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// respondError maps service errors onto the HTTP error taxonomy.
func respondError(c *gin.Context, err error) {
	if ce, ok := apperrors.AsCapacityExceeded(err); ok {
		c.JSON(http.StatusConflict, errorResponse{Error: errorBody{
			Code:    "CAPACITY_EXCEEDED",
			Message: ce.Error(),
			Units:   ce.Units,
		}})
		return
	}

	var status int
	var code string
	switch {
	case errors.Is(err, apperrors.ErrHoldNotFound):
		status, code = http.StatusNotFound, "HOLD_NOT_FOUND"
	case errors.Is(err, apperrors.ErrHoldExpired):
		status, code = http.StatusGone, "HOLD_EXPIRED"
	case errors.Is(err, apperrors.ErrTicketNotFound):
		status, code = http.StatusNotFound, "TICKET_NOT_FOUND"
	case errors.Is(err, apperrors.ErrTicketNotBooked):
		status, code = http.StatusConflict, "TICKET_NOT_BOOKED"
	case errors.Is(err, apperrors.ErrOrderNotFound):
		status, code = http.StatusNotFound, "ORDER_NOT_FOUND"
	case errors.Is(err, apperrors.ErrOrderNotCompleted):
		status, code = http.StatusConflict, "ORDER_NOT_COMPLETED"
	case errors.Is(err, apperrors.ErrUnitNotFound):
		status, code = http.StatusNotFound, "UNIT_NOT_FOUND"
	case errors.Is(err, apperrors.ErrScheduleNotFound):
		status, code = http.StatusNotFound, "SCHEDULE_NOT_FOUND"
	case errors.Is(err, apperrors.ErrEventNotFound):
		status, code = http.StatusNotFound, "EVENT_NOT_FOUND"
	case errors.Is(err, apperrors.ErrPaymentNotFound):
		status, code = http.StatusNotFound, "PAYMENT_NOT_FOUND"
	case errors.Is(err, apperrors.ErrInvalidUnit):
		status, code = http.StatusBadRequest, "INVALID_UNIT"
	default:
		logger.WithContext(c.Request.Context()).Error("Request failed", "error", err)
		status, code = http.StatusInternalServerError, "INTERNAL"
	}

	c.JSON(status, errorResponse{Error: errorBody{Code: code, Message: err.Error()}})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: errorBody{
		Code:    "VALIDATION_FAILED",
		Message: err.Error(),
	}})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
