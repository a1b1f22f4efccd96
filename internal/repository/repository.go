package repository

import (
	"ovation/internal/database"
)

// Repositories aggregates all data access objects.
type Repositories struct {
	Events   *EventRepository
	Holds    *HoldRepository
	Ledger   *LedgerRepository
	Orders   *OrderRepository
	Checkins *CheckinRepository
	Leases   *LeaseRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events:   NewEventRepository(db),
		Holds:    NewHoldRepository(db),
		Ledger:   NewLedgerRepository(db),
		Orders:   NewOrderRepository(db),
		Checkins: NewCheckinRepository(db),
		Leases:   NewLeaseRepository(db),
	}
}
