package service

import (
	"context"
	"time"

	"ovation/internal/clock"
	"ovation/internal/logger"
	"ovation/internal/models"
	"ovation/internal/monitoring"

	"github.com/google/uuid"
)

const reaperLeaseName = "order-reaper"

// Closed and expired holds are kept around for this long before the sweep
// garbage-collects the rows. Availability never reads them either way.
const holdRetention = 24 * time.Hour

// ReaperService reclaims inventory from abandoned checkouts. The debounce
// between effective sweeps lives in storage as a lease row, so any number of
// instances can run the loop without stampeding.
type ReaperService struct {
	tx       txRunner
	orders   orderStore
	holds    holdStore
	leases   leaseStore
	gateway  paymentGateway
	cache    availabilityCache
	pub      eventPublisher
	clock    clock.Clock
	debounce time.Duration
	holder   string
}

func NewReaperService(tx txRunner, orders orderStore, holds holdStore, leases leaseStore, gateway paymentGateway, cache availabilityCache, pub eventPublisher, clk clock.Clock, debounce time.Duration) *ReaperService {
	return &ReaperService{
		tx:       tx,
		orders:   orders,
		holds:    holds,
		leases:   leases,
		gateway:  gateway,
		cache:    cache,
		pub:      pub,
		clock:    clk,
		debounce: debounce,
		holder:   uuid.New().String()[:8],
	}
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Skipped     bool
	Expired     int
	HoldsPurged int64
}

// Sweep cancels every processing order whose payment deadline passed. Each
// order transitions in its own transaction: payment, order and tickets flip
// together or not at all, and a payment webhook racing the sweep loses
// cleanly because both lock the payment row first.
func (s *ReaperService) Sweep(ctx context.Context) (*SweepResult, error) {
	now := s.clock.Now()

	acquired, err := s.leases.Acquire(ctx, reaperLeaseName, s.holder, s.debounce, now)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return &SweepResult{Skipped: true}, nil
	}

	refs, err := s.orders.ExpiredProcessing(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for _, ref := range refs {
		expired, order, err := s.expireOrder(ctx, ref.OrderID, ref.PaymentID, now)
		if err != nil {
			logger.Get().Error("Failed to expire order",
				"order_id", ref.OrderID, "payment_id", ref.PaymentID, "error", err)
			continue
		}
		if !expired {
			continue
		}
		result.Expired++
		monitoring.OrdersExpiredTotal.Inc()

		if s.gateway != nil {
			if err := s.gateway.CancelPayment(ref.PaymentID, "payment deadline exceeded"); err != nil {
				logger.Get().Warn("Failed to cancel gateway payment",
					"payment_id", ref.PaymentID, "error", err)
			}
		}
		if s.cache != nil && order != nil {
			if err := s.cache.InvalidateAvailability(ctx, order.EventID, order.ScheduleID); err != nil {
				logger.Get().Warn("Failed to invalidate availability cache",
					"order_id", ref.OrderID, "error", err)
			}
		}
		if s.pub != nil {
			_ = s.pub.Publish(models.EventOrderExpired, models.OrderExpiredEvent{
				OrderID:   ref.OrderID,
				PaymentID: ref.PaymentID,
				Reason:    "payment deadline exceeded",
				Timestamp: now,
			})
		}
	}

	purged, err := s.holds.DeleteStale(ctx, now.Add(-holdRetention))
	if err != nil {
		logger.Get().Warn("Failed to purge stale holds", "error", err)
	} else {
		result.HoldsPurged = purged
	}

	return result, nil
}

// expireOrder flips one order to canceled, rechecking under the payment row
// lock that no webhook settled it in the meantime.
func (s *ReaperService) expireOrder(ctx context.Context, orderID, paymentID string, now time.Time) (bool, *models.Order, error) {
	var expired bool
	var order *models.Order

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		payment, err := s.orders.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment == nil || payment.Status != models.PaymentProcessing || payment.ExpiresAt.After(now) {
			return nil
		}

		if err := s.orders.UpdatePaymentStatus(ctx, paymentID, models.PaymentCanceled); err != nil {
			return err
		}
		if err := s.orders.UpdateOrderStatus(ctx, orderID, models.OrderCanceled); err != nil {
			return err
		}
		if _, err := s.orders.UpdateTicketsStatus(ctx, orderID, models.TicketCancelled); err != nil {
			return err
		}

		order, err = s.orders.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, nil, err
	}

	return expired, order, nil
}
