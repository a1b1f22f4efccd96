package models

import (
	"time"
)

// Order statuses.
const (
	OrderProcessing = "processing"
	OrderCompleted  = "completed"
	OrderCanceled   = "canceled"
)

// Payment statuses.
const (
	PaymentProcessing = "processing"
	PaymentPaid       = "paid"
	PaymentFailed     = "failed"
	PaymentCanceled   = "canceled"
)

// Ticket statuses.
const (
	TicketPendingPayment = "pending_payment"
	TicketBooked         = "booked"
	TicketCancelled      = "cancelled"
)

// Inventory unit kinds. A seat is a unique physical unit with capacity 1; a
// class is a fungible pool with a fixed capacity.
const (
	UnitSeat  = "seat"
	UnitClass = "class"
)

// Event represents a sellable event in the catalog.
type Event struct {
	ID          int64     `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	StartsAt    time.Time `json:"starts_at" db:"starts_at"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Schedule represents one dated occurrence of an event. Inventory is owned
// per (event, schedule).
type Schedule struct {
	ID       int64     `json:"id" db:"id"`
	EventID  int64     `json:"event_id" db:"event_id"`
	StartsAt time.Time `json:"starts_at" db:"starts_at"`
}

// InventoryUnit is the smallest allocatable item: a seat label or a named
// ticket class. Seat capacity is always 1, enforced by the schema.
type InventoryUnit struct {
	EventID    int64  `json:"event_id" db:"event_id"`
	ScheduleID int64  `json:"schedule_id" db:"schedule_id"`
	UnitKey    string `json:"unit_key" db:"unit_key"`
	Kind       string `json:"kind" db:"kind"`
	Capacity   int    `json:"capacity" db:"capacity"`
	Price      int64  `json:"price" db:"price"`
}

// HoldClaim is one unit claim inside a hold. Quantity is 1 for seats.
type HoldClaim struct {
	UnitKey  string `json:"unit_key" db:"unit_key"`
	Quantity int    `json:"quantity" db:"quantity"`
}

// Hold is a time-boxed claim on inventory made during checkout, identified
// by an opaque session-bound code. A hold with ClosedAt set or ExpiresAt in
// the past is inactive and invisible to availability.
type Hold struct {
	ID         int64       `json:"id" db:"id"`
	Code       string      `json:"code" db:"code"`
	EventID    int64       `json:"event_id" db:"event_id"`
	ScheduleID int64       `json:"schedule_id" db:"schedule_id"`
	Claims     []HoldClaim `json:"claims,omitempty"`
	ExpiresAt  time.Time   `json:"expires_at" db:"expires_at"`
	ClosedAt   *time.Time  `json:"closed_at" db:"closed_at"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// ActiveAt reports whether the hold still counts against availability.
func (h *Hold) ActiveAt(now time.Time) bool {
	return h.ClosedAt == nil && h.ExpiresAt.After(now)
}

// Order represents a checkout in progress or finished.
type Order struct {
	ID          string    `json:"id" db:"id"`
	EventID     int64     `json:"event_id" db:"event_id"`
	ScheduleID  int64     `json:"schedule_id" db:"schedule_id"`
	UserID      *int64    `json:"user_id" db:"user_id"`
	HoldCode    *string   `json:"hold_code" db:"hold_code"`
	Status      string    `json:"status" db:"status"`
	TotalAmount int64     `json:"total_amount" db:"total_amount"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Payment tracks the gateway charge for an order. ExpiresAt bounds how long
// a processing payment may hold inventory before the reaper reclaims it.
type Payment struct {
	ID        string     `json:"id" db:"id"`
	OrderID   string     `json:"order_id" db:"order_id"`
	Status    string     `json:"status" db:"status"`
	Amount    int64      `json:"amount" db:"amount"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	PaidAt    *time.Time `json:"paid_at" db:"paid_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Ticket is one claimed unit of an order. Class claims of quantity N produce
// N ticket rows, each with its own unguessable code.
type Ticket struct {
	ID         string `json:"id" db:"id"`
	OrderID    string `json:"order_id" db:"order_id"`
	EventID    int64  `json:"event_id" db:"event_id"`
	ScheduleID int64  `json:"schedule_id" db:"schedule_id"`
	UnitKey    string `json:"unit_key" db:"unit_key"`
	TicketCode string `json:"ticket_code" db:"ticket_code"`
	Status     string `json:"status" db:"status"`
}

// CheckinRecord marks a ticket as consumed. At most one non-deleted record
// may exist per ticket code; the partial unique index enforces it.
type CheckinRecord struct {
	ID          int64      `json:"id" db:"id"`
	TicketCode  string     `json:"ticket_code" db:"ticket_code"`
	OperatorID  string     `json:"operator_id" db:"operator_id"`
	CheckedInAt time.Time  `json:"checked_in_at" db:"checked_in_at"`
	DeletedAt   *time.Time `json:"deleted_at" db:"deleted_at"`
}
