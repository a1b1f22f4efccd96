package models

import "time"

// NATS subjects.
const (
	EventHoldAcquired    = "hold.acquired"
	EventHoldReleased    = "hold.released"
	EventOrderCreated    = "order.created"
	EventOrderFinalized  = "order.finalized"
	EventOrderExpired    = "order.expired"
	EventPaymentReceived = "payment.completed"
	EventTicketCheckedIn = "ticket.checked_in"
)

// HoldAcquiredEvent is published after a hold is created or renewed.
type HoldAcquiredEvent struct {
	HoldCode   string    `json:"hold_code"`
	EventID    int64     `json:"event_id"`
	ScheduleID int64     `json:"schedule_id"`
	Renewed    bool      `json:"renewed"`
	ExpiresAt  time.Time `json:"expires_at"`
	Timestamp  time.Time `json:"timestamp"`
}

// HoldReleasedEvent is published after an explicit release.
type HoldReleasedEvent struct {
	HoldCode  string    `json:"hold_code"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent is published when a hold is converted into an order.
type OrderCreatedEvent struct {
	OrderID    string    `json:"order_id"`
	PaymentID  string    `json:"payment_id"`
	EventID    int64     `json:"event_id"`
	ScheduleID int64     `json:"schedule_id"`
	Amount     int64     `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}

// PaymentCompletedEvent triggers finalization; delivery may repeat.
type PaymentCompletedEvent struct {
	PaymentID string    `json:"payment_id"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderFinalizedEvent is published after tickets transition to booked.
type OrderFinalizedEvent struct {
	OrderID   string    `json:"order_id"`
	PaymentID string    `json:"payment_id"`
	Tickets   int       `json:"tickets"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderExpiredEvent is published when the reaper reclaims an order.
type OrderExpiredEvent struct {
	OrderID   string    `json:"order_id"`
	PaymentID string    `json:"payment_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// TicketCheckedInEvent is published for the winning check-in only.
type TicketCheckedInEvent struct {
	TicketCode  string    `json:"ticket_code"`
	OperatorID  string    `json:"operator_id"`
	CheckedInAt time.Time `json:"checked_in_at"`
	Timestamp   time.Time `json:"timestamp"`
}
