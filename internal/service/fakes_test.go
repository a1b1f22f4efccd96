package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ovation/internal/external"
	"ovation/internal/models"
	"ovation/internal/repository"
)

// fakeDB is an in-memory stand-in for the Postgres repositories. WithTx
// holds one mutex for the whole callback, which mirrors how FOR UPDATE row
// locks serialize the real transactions, and restores a snapshot when the
// callback fails, which mirrors rollback. Store methods themselves do not
// lock; they are either called inside WithTx or from single-threaded tests.
// The check-in store keeps its own mutex because admission never runs in a
// transaction.
type fakeDB struct {
	mu sync.Mutex

	units     map[string]models.InventoryUnit
	schedules map[int64]int64

	holds      map[string]models.Hold
	nextHoldID int64

	orders   map[string]models.Order
	payments map[string]models.Payment
	tickets  map[string]models.Ticket

	checkinMu     sync.Mutex
	checkins      map[string]models.CheckinRecord
	nextCheckinID int64

	leases map[string]time.Time

	failTicketUpdate bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		units:     make(map[string]models.InventoryUnit),
		schedules: map[int64]int64{1: 1},
		holds:     make(map[string]models.Hold),
		orders:    make(map[string]models.Order),
		payments:  make(map[string]models.Payment),
		tickets:   make(map[string]models.Ticket),
		checkins:  make(map[string]models.CheckinRecord),
		leases:    make(map[string]time.Time),
	}
}

func unitKey(eventID, scheduleID int64, key string) string {
	return fmt.Sprintf("%d/%d/%s", eventID, scheduleID, key)
}

func (f *fakeDB) addUnit(key, kind string, capacity int, price int64) {
	f.units[unitKey(1, 1, key)] = models.InventoryUnit{
		EventID: 1, ScheduleID: 1, UnitKey: key, Kind: kind, Capacity: capacity, Price: price,
	}
}

func copyHold(h models.Hold) models.Hold {
	h.Claims = append([]models.HoldClaim(nil), h.Claims...)
	return h
}

func (f *fakeDB) snapshot() (map[string]models.Hold, map[string]models.Order, map[string]models.Payment, map[string]models.Ticket) {
	holds := make(map[string]models.Hold, len(f.holds))
	for k, v := range f.holds {
		holds[k] = copyHold(v)
	}
	orders := make(map[string]models.Order, len(f.orders))
	for k, v := range f.orders {
		orders[k] = v
	}
	payments := make(map[string]models.Payment, len(f.payments))
	for k, v := range f.payments {
		payments[k] = v
	}
	tickets := make(map[string]models.Ticket, len(f.tickets))
	for k, v := range f.tickets {
		tickets[k] = v
	}
	return holds, orders, payments, tickets
}

func (f *fakeDB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	holds, orders, payments, tickets := f.snapshot()
	if err := fn(ctx); err != nil {
		f.holds, f.orders, f.payments, f.tickets = holds, orders, payments, tickets
		return err
	}
	return nil
}

// ledgerStore

func (f *fakeDB) LockUnits(ctx context.Context, eventID, scheduleID int64, unitKeys []string) ([]models.InventoryUnit, error) {
	var units []models.InventoryUnit
	for _, k := range unitKeys {
		if u, ok := f.units[unitKey(eventID, scheduleID, k)]; ok {
			units = append(units, u)
		}
	}
	return units, nil
}

func (f *fakeDB) ActiveClaims(ctx context.Context, eventID, scheduleID int64, now time.Time) (map[string]int, error) {
	claims := make(map[string]int)
	for _, h := range f.holds {
		if h.EventID != eventID || h.ScheduleID != scheduleID || !h.ActiveAt(now) {
			continue
		}
		for _, c := range h.Claims {
			claims[c.UnitKey] += c.Quantity
		}
	}
	for _, t := range f.tickets {
		if t.EventID != eventID || t.ScheduleID != scheduleID {
			continue
		}
		if t.Status != models.TicketPendingPayment && t.Status != models.TicketBooked {
			continue
		}
		order := f.orders[t.OrderID]
		binds := order.Status == models.OrderCompleted
		if !binds && order.Status == models.OrderProcessing {
			for _, p := range f.payments {
				if p.OrderID == order.ID && p.ExpiresAt.After(now) {
					binds = true
					break
				}
			}
		}
		if binds {
			claims[t.UnitKey]++
		}
	}
	return claims, nil
}

// holdStore

func (f *fakeDB) GetByCodeForUpdate(ctx context.Context, code string) (*models.Hold, error) {
	h, ok := f.holds[code]
	if !ok {
		return nil, nil
	}
	out := copyHold(h)
	return &out, nil
}

func (f *fakeDB) Create(ctx context.Context, hold *models.Hold) error {
	f.nextHoldID++
	hold.ID = f.nextHoldID
	hold.CreatedAt = time.Now()
	f.holds[hold.Code] = copyHold(*hold)
	return nil
}

func (f *fakeDB) Renew(ctx context.Context, hold *models.Hold) error {
	stored, ok := f.holds[hold.Code]
	if !ok {
		return nil
	}
	stored.ExpiresAt = hold.ExpiresAt
	stored.Claims = append([]models.HoldClaim(nil), hold.Claims...)
	f.holds[hold.Code] = stored
	return nil
}

func (f *fakeDB) Close(ctx context.Context, code string, closedAt time.Time) error {
	h, ok := f.holds[code]
	if !ok || h.ClosedAt != nil {
		return nil
	}
	t := closedAt
	h.ClosedAt = &t
	f.holds[code] = h
	return nil
}

func (f *fakeDB) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	for code, h := range f.holds {
		if (h.ClosedAt != nil && h.ClosedAt.Before(olderThan)) ||
			(h.ClosedAt == nil && h.ExpiresAt.Before(olderThan)) {
			delete(f.holds, code)
			n++
		}
	}
	return n, nil
}

// orderStore

func (f *fakeDB) CreateOrder(ctx context.Context, order *models.Order) error {
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	f.orders[order.ID] = *order
	return nil
}

func (f *fakeDB) CreatePayment(ctx context.Context, payment *models.Payment) error {
	payment.CreatedAt = time.Now()
	f.payments[payment.ID] = *payment
	return nil
}

func (f *fakeDB) CreateTickets(ctx context.Context, tickets []models.Ticket) error {
	for _, t := range tickets {
		f.tickets[t.ID] = t
	}
	return nil
}

func (f *fakeDB) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (f *fakeDB) GetPaymentForUpdate(ctx context.Context, id string) (*models.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeDB) MarkPaymentPaid(ctx context.Context, id string, paidAt time.Time) error {
	p := f.payments[id]
	p.Status = models.PaymentPaid
	t := paidAt
	p.PaidAt = &t
	f.payments[id] = p
	return nil
}

func (f *fakeDB) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	p := f.payments[id]
	p.Status = status
	f.payments[id] = p
	return nil
}

func (f *fakeDB) UpdateOrderStatus(ctx context.Context, id, status string) error {
	o := f.orders[id]
	o.Status = status
	f.orders[id] = o
	return nil
}

func (f *fakeDB) UpdateTicketsStatus(ctx context.Context, orderID, status string) (int64, error) {
	if f.failTicketUpdate {
		return 0, fmt.Errorf("injected ticket update failure")
	}
	var n int64
	for id, t := range f.tickets {
		if t.OrderID == orderID {
			t.Status = status
			f.tickets[id] = t
			n++
		}
	}
	return n, nil
}

func (f *fakeDB) ExpiredProcessing(ctx context.Context, now time.Time) ([]repository.ExpiredOrderRef, error) {
	var refs []repository.ExpiredOrderRef
	for _, p := range f.payments {
		o := f.orders[p.OrderID]
		if o.Status == models.OrderProcessing && p.Status == models.PaymentProcessing && p.ExpiresAt.Before(now) {
			refs = append(refs, repository.ExpiredOrderRef{OrderID: o.ID, PaymentID: p.ID})
		}
	}
	return refs, nil
}

// checkinStore

func (f *fakeDB) GetTicketByCode(ctx context.Context, ticketCode string) (*models.Ticket, error) {
	for _, t := range f.tickets {
		if t.TicketCode == ticketCode {
			out := t
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) GetOrderStatus(ctx context.Context, orderID string) (string, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return "", nil
	}
	return o.Status, nil
}

func (f *fakeDB) InsertRecord(ctx context.Context, record *models.CheckinRecord) error {
	f.checkinMu.Lock()
	defer f.checkinMu.Unlock()

	if _, ok := f.checkins[record.TicketCode]; ok {
		return repository.ErrDuplicateCheckin
	}
	f.nextCheckinID++
	record.ID = f.nextCheckinID
	f.checkins[record.TicketCode] = *record
	return nil
}

func (f *fakeDB) GetActiveRecord(ctx context.Context, ticketCode string) (*models.CheckinRecord, error) {
	f.checkinMu.Lock()
	defer f.checkinMu.Unlock()

	r, ok := f.checkins[ticketCode]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

// eventStore

func (f *fakeDB) CreateEvent(ctx context.Context, event *models.Event) error {
	event.ID = 1
	return nil
}

func (f *fakeDB) CreateSchedule(ctx context.Context, schedule *models.Schedule) error {
	schedule.ID = int64(len(f.schedules) + 1)
	f.schedules[schedule.ID] = schedule.EventID
	return nil
}

func (f *fakeDB) CreateUnits(ctx context.Context, units []models.InventoryUnit) error {
	for _, u := range units {
		f.units[unitKey(u.EventID, u.ScheduleID, u.UnitKey)] = u
	}
	return nil
}

func (f *fakeDB) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	return nil, nil
}

func (f *fakeDB) ScheduleExists(ctx context.Context, eventID, scheduleID int64) (bool, error) {
	owner, ok := f.schedules[scheduleID]
	return ok && owner == eventID, nil
}

func (f *fakeDB) List(ctx context.Context, page, pageSize int) ([]models.Event, error) {
	return nil, nil
}

func (f *fakeDB) ListUnits(ctx context.Context, eventID, scheduleID int64) ([]models.InventoryUnit, error) {
	var units []models.InventoryUnit
	for _, u := range f.units {
		if u.EventID == eventID && u.ScheduleID == scheduleID {
			units = append(units, u)
		}
	}
	return units, nil
}

// leaseStore

func (f *fakeDB) Acquire(ctx context.Context, name, holder string, debounce time.Duration, now time.Time) (bool, error) {
	last, ok := f.leases[name]
	if ok && last.After(now.Add(-debounce)) {
		return false, nil
	}
	f.leases[name] = now
	return true, nil
}

// testClock is a mutable clock for expiry tests.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{t: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeGateway records calls to the payment gateway.
type fakeGateway struct {
	mu       sync.Mutex
	inits    []string
	cancels  []string
	initFail bool
}

func (g *fakeGateway) InitPayment(amount int64, orderID, description string) (*external.PaymentInitResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.initFail {
		return nil, fmt.Errorf("gateway unavailable")
	}
	g.inits = append(g.inits, orderID)
	return &external.PaymentInitResponse{
		Success:    true,
		PaymentID:  "gw-" + orderID,
		OrderID:    orderID,
		Status:     "processing",
		PaymentURL: "https://pay.example/" + orderID,
	}, nil
}

func (g *fakeGateway) CancelPayment(paymentID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancels = append(g.cancels, paymentID)
	return nil
}

// fakePublisher records published subjects.
type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *fakePublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *fakePublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.subjects {
		if s == subject {
			n++
		}
	}
	return n
}
