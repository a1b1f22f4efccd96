package handlers

import (
	"net/http"
	"strings"

	"ovation/internal/logger"
	"ovation/internal/models"

	"github.com/gin-gonic/gin"
)

// Checkout converts a hold into an order awaiting payment.
// POST /api/orders
func (h *Handler) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.services.Orders.Checkout(c.Request.Context(), req.HoldCode)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetOrder returns one order.
// GET /api/orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.services.Orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// PaymentNotification is the gateway webhook. Delivery may repeat; both
// branches are idempotent. The response is always 200 once the payload
// parses, so the gateway stops retrying.
// POST /api/payments/notifications
func (h *Handler) PaymentNotification(c *gin.Context) {
	var payload models.PaymentNotificationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	switch strings.ToLower(payload.Status) {
	case "completed", "paid", "success":
		if _, err := h.services.Orders.Finalize(ctx, payload.PaymentID); err != nil {
			logger.WithContext(ctx).Error("Failed to finalize payment",
				"payment_id", payload.PaymentID, "error", err)
		}
	case "failed", "canceled", "cancelled":
		if err := h.services.Orders.Fail(ctx, payload.PaymentID, models.PaymentFailed); err != nil {
			logger.WithContext(ctx).Error("Failed to cancel payment",
				"payment_id", payload.PaymentID, "error", err)
		}
	default:
		logger.WithContext(ctx).Warn("Unknown payment status in notification",
			"payment_id", payload.PaymentID, "status", payload.Status)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// PaymentSuccess is the browser return URL after a successful charge. The
// webhook is the authoritative signal; this just finalizes eagerly.
// GET /api/payments/success?paymentId=
func (h *Handler) PaymentSuccess(c *gin.Context) {
	paymentID := c.Query("paymentId")
	if paymentID == "" {
		respondBadRequest(c, errMissingPaymentID)
		return
	}

	finalized, err := h.services.Orders.Finalize(c.Request.Context(), paymentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "finalized": finalized})
}

// PaymentFail is the browser return URL after a declined charge.
// GET /api/payments/fail?paymentId=
func (h *Handler) PaymentFail(c *gin.Context) {
	paymentID := c.Query("paymentId")
	if paymentID == "" {
		respondBadRequest(c, errMissingPaymentID)
		return
	}

	if err := h.services.Orders.Fail(c.Request.Context(), paymentID, models.PaymentFailed); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
