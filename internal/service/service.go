package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"ovation/internal/clock"
	"ovation/internal/config"
	"ovation/internal/external"
	"ovation/internal/models"
	"ovation/internal/repository"
)

// Store interfaces are declared here, next to the consumers, so tests can
// substitute in-memory implementations.

type txRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ledgerStore interface {
	LockUnits(ctx context.Context, eventID, scheduleID int64, unitKeys []string) ([]models.InventoryUnit, error)
	ActiveClaims(ctx context.Context, eventID, scheduleID int64, now time.Time) (map[string]int, error)
}

type holdStore interface {
	GetByCodeForUpdate(ctx context.Context, code string) (*models.Hold, error)
	Create(ctx context.Context, hold *models.Hold) error
	Renew(ctx context.Context, hold *models.Hold) error
	Close(ctx context.Context, code string, closedAt time.Time) error
	DeleteStale(ctx context.Context, olderThan time.Time) (int64, error)
}

type orderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	CreateTickets(ctx context.Context, tickets []models.Ticket) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	GetPaymentForUpdate(ctx context.Context, id string) (*models.Payment, error)
	MarkPaymentPaid(ctx context.Context, id string, paidAt time.Time) error
	UpdatePaymentStatus(ctx context.Context, id, status string) error
	UpdateOrderStatus(ctx context.Context, id, status string) error
	UpdateTicketsStatus(ctx context.Context, orderID, status string) (int64, error)
	ExpiredProcessing(ctx context.Context, now time.Time) ([]repository.ExpiredOrderRef, error)
}

type checkinStore interface {
	GetTicketByCode(ctx context.Context, ticketCode string) (*models.Ticket, error)
	GetOrderStatus(ctx context.Context, orderID string) (string, error)
	InsertRecord(ctx context.Context, record *models.CheckinRecord) error
	GetActiveRecord(ctx context.Context, ticketCode string) (*models.CheckinRecord, error)
}

type eventStore interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	CreateSchedule(ctx context.Context, schedule *models.Schedule) error
	CreateUnits(ctx context.Context, units []models.InventoryUnit) error
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	ScheduleExists(ctx context.Context, eventID, scheduleID int64) (bool, error)
	List(ctx context.Context, page, pageSize int) ([]models.Event, error)
	ListUnits(ctx context.Context, eventID, scheduleID int64) ([]models.InventoryUnit, error)
}

type leaseStore interface {
	Acquire(ctx context.Context, name, holder string, debounce time.Duration, now time.Time) (bool, error)
}

type eventPublisher interface {
	Publish(subject string, data interface{}) error
}

type availabilityCache interface {
	GetAvailabilityRaw(ctx context.Context, eventID, scheduleID int64) ([]byte, error)
	SetAvailability(ctx context.Context, eventID, scheduleID int64, snapshot interface{}) error
	InvalidateAvailability(ctx context.Context, eventID, scheduleID int64) error
}

type paymentGateway interface {
	InitPayment(amount int64, orderID, description string) (*external.PaymentInitResponse, error)
	CancelPayment(paymentID, reason string) error
}

type eventIndexer interface {
	IndexEvent(ctx context.Context, event *models.Event) error
	SearchEvents(ctx context.Context, query string, page, pageSize int) (models.ListEventsResponse, error)
}

// Services aggregates the business logic layer.
type Services struct {
	Holds        *HoldService
	Availability *AvailabilityService
	Orders       *OrderService
	Checkin      *CheckinService
	Reaper       *ReaperService
	Events       *EventService
}

// Deps carries the external collaborators. Cache, publisher, gateway and
// indexer may be nil; every service degrades to database-only behavior.
type Deps struct {
	Publisher eventPublisher
	Cache     availabilityCache
	Gateway   paymentGateway
	Indexer   eventIndexer
	Clock     clock.Clock
}

func NewServices(cfg *config.Config, repos *repository.Repositories, deps Deps) *Services {
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}

	availability := NewAvailabilityService(repos.Events, repos.Ledger, deps.Cache, deps.Clock)

	return &Services{
		Holds:        NewHoldService(repos.Ledger, repos.Holds, repos.Ledger, deps.Cache, deps.Publisher, deps.Clock, cfg.HoldTTL),
		Availability: availability,
		Orders:       NewOrderService(repos.Orders, repos.Orders, repos.Holds, repos.Ledger, deps.Gateway, deps.Cache, deps.Publisher, deps.Clock, cfg.PaymentTTL),
		Checkin:      NewCheckinService(repos.Checkins, deps.Publisher, deps.Clock),
		Reaper:       NewReaperService(repos.Orders, repos.Orders, repos.Holds, repos.Leases, deps.Gateway, deps.Cache, deps.Publisher, deps.Clock, cfg.ReaperDebounce),
		Events:       NewEventService(repos.Events, repos.Events, deps.Indexer),
	}
}

// newCode returns an unguessable hex identifier for holds and tickets.
func newCode(bytes int) string {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
