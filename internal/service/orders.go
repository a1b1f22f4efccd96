package service

import (
	"context"
	"fmt"
	"time"

	"ovation/internal/clock"
	apperrors "ovation/internal/errors"
	"ovation/internal/logger"
	"ovation/internal/models"
	"ovation/internal/monitoring"

	"github.com/google/uuid"
)

// OrderService converts holds into orders and finalizes them once the
// payment gateway confirms the charge. Converting and finalizing are the
// only transitions that move inventory between claim sources, and each runs
// in a single transaction.
type OrderService struct {
	tx         txRunner
	orders     orderStore
	holds      holdStore
	ledger     ledgerStore
	gateway    paymentGateway
	cache      availabilityCache
	pub        eventPublisher
	clock      clock.Clock
	paymentTTL time.Duration
}

func NewOrderService(tx txRunner, orders orderStore, holds holdStore, ledger ledgerStore, gateway paymentGateway, cache availabilityCache, pub eventPublisher, clk clock.Clock, paymentTTL time.Duration) *OrderService {
	return &OrderService{
		tx:         tx,
		orders:     orders,
		holds:      holds,
		ledger:     ledger,
		gateway:    gateway,
		cache:      cache,
		pub:        pub,
		clock:      clk,
		paymentTTL: paymentTTL,
	}
}

// Checkout converts an active hold into an order with pending tickets and a
// processing payment. The hold is closed in the same transaction that writes
// the tickets, so the claim moves between sources atomically and is never
// counted twice by availability.
func (s *OrderService) Checkout(ctx context.Context, holdCode string) (*models.CheckoutResponse, error) {
	now := s.clock.Now()
	var resp *models.CheckoutResponse
	var order *models.Order

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		hold, err := s.holds.GetByCodeForUpdate(ctx, holdCode)
		if err != nil {
			return err
		}
		if hold == nil || hold.ClosedAt != nil {
			return apperrors.ErrHoldNotFound
		}
		if !hold.ExpiresAt.After(now) {
			return apperrors.ErrHoldExpired
		}

		keys := make([]string, 0, len(hold.Claims))
		for _, c := range hold.Claims {
			keys = append(keys, c.UnitKey)
		}
		units, err := s.ledger.LockUnits(ctx, hold.EventID, hold.ScheduleID, keys)
		if err != nil {
			return err
		}
		price := make(map[string]int64, len(units))
		for _, u := range units {
			price[u.UnitKey] = u.Price
		}

		var total int64
		for _, c := range hold.Claims {
			total += price[c.UnitKey] * int64(c.Quantity)
		}

		order = &models.Order{
			ID:          uuid.New().String(),
			EventID:     hold.EventID,
			ScheduleID:  hold.ScheduleID,
			HoldCode:    &hold.Code,
			Status:      models.OrderProcessing,
			TotalAmount: total,
		}
		if err := s.orders.CreateOrder(ctx, order); err != nil {
			return err
		}

		payment := &models.Payment{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			Status:    models.PaymentProcessing,
			Amount:    total,
			ExpiresAt: now.Add(s.paymentTTL),
		}
		var paymentURL string
		if s.gateway != nil {
			// The gateway call sits inside the transaction so a failed init
			// rolls everything back and leaves the hold untouched.
			init, err := s.gateway.InitPayment(total, order.ID, fmt.Sprintf("Order %s", order.ID))
			if err != nil {
				return err
			}
			payment.ID = init.PaymentID
			paymentURL = init.PaymentURL
		}
		if err := s.orders.CreatePayment(ctx, payment); err != nil {
			return err
		}

		var tickets []models.Ticket
		for _, c := range hold.Claims {
			for i := 0; i < c.Quantity; i++ {
				tickets = append(tickets, models.Ticket{
					ID:         uuid.New().String(),
					OrderID:    order.ID,
					EventID:    hold.EventID,
					ScheduleID: hold.ScheduleID,
					UnitKey:    c.UnitKey,
					TicketCode: newCode(16),
					Status:     models.TicketPendingPayment,
				})
			}
		}
		if err := s.orders.CreateTickets(ctx, tickets); err != nil {
			return err
		}

		if err := s.holds.Close(ctx, hold.Code, now); err != nil {
			return err
		}

		resp = &models.CheckoutResponse{
			OrderID:    order.ID,
			PaymentID:  payment.ID,
			PaymentURL: paymentURL,
			Amount:     total,
			ExpiresAt:  payment.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.OrdersCreatedTotal.Inc()
	s.invalidate(ctx, order.EventID, order.ScheduleID)
	s.publish(models.EventOrderCreated, models.OrderCreatedEvent{
		OrderID:    resp.OrderID,
		PaymentID:  resp.PaymentID,
		EventID:    order.EventID,
		ScheduleID: order.ScheduleID,
		Amount:     resp.Amount,
		Timestamp:  now,
	})

	return resp, nil
}

// Finalize completes the order behind a successfully charged payment. It is
// idempotent: repeated gateway notifications for an already-paid payment do
// nothing. A success arriving after the reaper canceled the order triggers a
// compensating refund instead.
func (s *OrderService) Finalize(ctx context.Context, paymentID string) (bool, error) {
	now := s.clock.Now()
	var finalized, lostRace bool
	var orderID string
	var tickets int64

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		payment, err := s.orders.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return apperrors.ErrPaymentNotFound
		}
		switch payment.Status {
		case models.PaymentPaid:
			return nil
		case models.PaymentProcessing:
		default:
			// The reaper already reclaimed this order.
			lostRace = true
			return nil
		}

		if err := s.orders.MarkPaymentPaid(ctx, paymentID, now); err != nil {
			return err
		}
		if err := s.orders.UpdateOrderStatus(ctx, payment.OrderID, models.OrderCompleted); err != nil {
			return err
		}
		n, err := s.orders.UpdateTicketsStatus(ctx, payment.OrderID, models.TicketBooked)
		if err != nil {
			return err
		}

		orderID = payment.OrderID
		tickets = n
		finalized = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if lostRace {
		logger.WithContext(ctx).Warn("Payment succeeded after order expiry, refunding",
			"payment_id", paymentID)
		if s.gateway != nil {
			if err := s.gateway.CancelPayment(paymentID, "order expired"); err != nil {
				logger.WithContext(ctx).Error("Failed to refund expired order payment",
					"payment_id", paymentID, "error", err)
			}
		}
		return false, nil
	}
	if !finalized {
		return false, nil
	}

	monitoring.OrdersFinalizedTotal.Inc()
	s.publish(models.EventOrderFinalized, models.OrderFinalizedEvent{
		OrderID:   orderID,
		PaymentID: paymentID,
		Tickets:   int(tickets),
		Timestamp: now,
	})

	return true, nil
}

// Fail cancels the order behind a failed or canceled payment and frees its
// inventory. Already-settled payments are left alone.
func (s *OrderService) Fail(ctx context.Context, paymentID, status string) error {
	var order *models.Order

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		payment, err := s.orders.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil {
			return apperrors.ErrPaymentNotFound
		}
		if payment.Status != models.PaymentProcessing {
			return nil
		}

		if err := s.orders.UpdatePaymentStatus(ctx, paymentID, status); err != nil {
			return err
		}
		if err := s.orders.UpdateOrderStatus(ctx, payment.OrderID, models.OrderCanceled); err != nil {
			return err
		}
		if _, err := s.orders.UpdateTicketsStatus(ctx, payment.OrderID, models.TicketCancelled); err != nil {
			return err
		}

		order, err = s.orders.GetOrder(ctx, payment.OrderID)
		return err
	})
	if err != nil {
		return err
	}

	if order != nil {
		s.invalidate(ctx, order.EventID, order.ScheduleID)
	}
	return nil
}

// GetOrder returns an order by id.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperrors.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) invalidate(ctx context.Context, eventID, scheduleID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAvailability(ctx, eventID, scheduleID); err != nil {
		logger.WithContext(ctx).Warn("Failed to invalidate availability cache",
			"event_id", eventID, "schedule_id", scheduleID, "error", err)
	}
}

func (s *OrderService) publish(subject string, payload interface{}) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(subject, payload); err != nil {
		logger.Get().Warn("Failed to publish event", "subject", subject, "error", err)
	}
}
