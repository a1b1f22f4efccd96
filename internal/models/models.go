package models

import "time"

// UnitRequest is one requested claim inside a hold request. Quantity defaults
// to 1 and must be 1 for seats.
type UnitRequest struct {
	UnitKey  string `json:"unit_key" binding:"required"`
	Quantity int    `json:"quantity"`
}

// AcquireHoldRequest acquires a new hold or renews the one named by HoldCode.
type AcquireHoldRequest struct {
	EventID    int64         `json:"event_id" binding:"required"`
	ScheduleID int64         `json:"schedule_id" binding:"required"`
	HoldCode   string        `json:"hold_code"`
	Units      []UnitRequest `json:"units" binding:"required,min=1,dive"`
}

// AcquireHoldResponse returns the session hold code and its expiry.
type AcquireHoldResponse struct {
	HoldCode  string    `json:"hold_code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReleaseHoldRequest releases a hold. Always succeeds.
type ReleaseHoldRequest struct {
	HoldCode string `json:"hold_code" binding:"required"`
}

// ReleaseHoldResponse acknowledges a release.
type ReleaseHoldResponse struct {
	OK bool `json:"ok"`
}

// AvailabilityItem is the remaining capacity of one unit.
type AvailabilityItem struct {
	UnitKey   string `json:"unit_key"`
	Kind      string `json:"kind"`
	Capacity  int    `json:"capacity"`
	Remaining int    `json:"remaining"`
}

// AvailabilityResponse is the per-schedule availability snapshot.
type AvailabilityResponse struct {
	EventID    int64              `json:"event_id"`
	ScheduleID int64              `json:"schedule_id"`
	Units      []AvailabilityItem `json:"units"`
}

// CheckoutRequest converts an active hold into an order awaiting payment.
type CheckoutRequest struct {
	HoldCode string `json:"hold_code" binding:"required"`
}

// CheckoutResponse returns the created order and the gateway redirect.
type CheckoutResponse struct {
	OrderID    string    `json:"order_id"`
	PaymentID  string    `json:"payment_id"`
	PaymentURL string    `json:"payment_url,omitempty"`
	Amount     int64     `json:"amount"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// PaymentNotificationPayload is the webhook body from the payment gateway.
type PaymentNotificationPayload struct {
	PaymentID string                 `json:"paymentId" binding:"required"`
	Status    string                 `json:"status" binding:"required"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// CheckinRequest marks a booked ticket as consumed at the gate.
type CheckinRequest struct {
	TicketCode string `json:"ticket_code" binding:"required"`
	OperatorID string `json:"operator_id" binding:"required"`
}

// CheckinResponse reports the winning record. AlreadyCheckedIn is true when
// a concurrent or earlier scan won; the original record is returned as-is.
type CheckinResponse struct {
	AlreadyCheckedIn bool      `json:"already_checked_in"`
	TicketCode       string    `json:"ticket_code"`
	OperatorID       string    `json:"operator_id"`
	CheckedInAt      time.Time `json:"checked_in_at"`
}

// CreateClassRequest configures one ticket class of a schedule.
type CreateClassRequest struct {
	UnitKey  string `json:"unit_key" binding:"required"`
	Capacity int    `json:"capacity" binding:"required,min=1"`
	Price    int64  `json:"price"`
}

// CreateScheduleRequest configures one schedule with its inventory.
type CreateScheduleRequest struct {
	StartsAt  time.Time            `json:"starts_at" binding:"required"`
	Seats     []string             `json:"seats"`
	SeatPrice int64                `json:"seat_price"`
	Classes   []CreateClassRequest `json:"classes"`
}

// CreateEventRequest creates an event plus its schedules and inventory units.
type CreateEventRequest struct {
	Title       string                  `json:"title" binding:"required"`
	Description string                  `json:"description"`
	StartsAt    time.Time               `json:"starts_at" binding:"required"`
	Schedules   []CreateScheduleRequest `json:"schedules" binding:"required,min=1,dive"`
}

// CreateEventResponse returns the created ids.
type CreateEventResponse struct {
	ID          int64   `json:"id"`
	ScheduleIDs []int64 `json:"schedule_ids"`
}

// ListEventsResponseItem is one event in the catalog listing.
type ListEventsResponseItem struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
}

// ListEventsResponse is the catalog listing.
type ListEventsResponse []ListEventsResponseItem
