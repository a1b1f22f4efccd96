package errors

import (
	"errors"
	"fmt"
	"strings"
)

var ErrHoldNotFound = errors.New("hold not found")
var ErrHoldExpired = errors.New("hold expired")
var ErrTicketNotFound = errors.New("ticket not found")
var ErrTicketNotBooked = errors.New("ticket is not booked")
var ErrOrderNotFound = errors.New("order not found")
var ErrOrderNotCompleted = errors.New("order is not completed")
var ErrUnitNotFound = errors.New("inventory unit not found")
var ErrPaymentNotFound = errors.New("payment not found")
var ErrEventNotFound = errors.New("event not found")
var ErrInvalidUnit = errors.New("invalid unit request")
var ErrScheduleNotFound = errors.New("schedule not found")

// ErrLedgerInconsistency marks an impossible ledger state (negative remaining
// capacity, orphaned claim). Callers fail safe toward unavailability.
var ErrLedgerInconsistency = errors.New("ledger inconsistency")

// CapacityExceededError rejects a hold request and names every unit key that
// could not be claimed, so the client can pick different units.
type CapacityExceededError struct {
	Units []string
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded for: %s", strings.Join(e.Units, ", "))
}

// AsCapacityExceeded unwraps err into a CapacityExceededError if it is one.
func AsCapacityExceeded(err error) (*CapacityExceededError, bool) {
	var ce *CapacityExceededError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
