package service

import (
	"context"
	"sort"
	"time"

	"ovation/internal/clock"
	apperrors "ovation/internal/errors"
	"ovation/internal/logger"
	"ovation/internal/models"
	"ovation/internal/monitoring"
)

// HoldService manages time-boxed inventory claims. Every acquisition runs the
// availability check and the claim write inside one transaction, with the
// affected unit rows locked, so concurrent requests for the last unit
// serialize and exactly one wins.
type HoldService struct {
	tx      txRunner
	holds   holdStore
	ledger  ledgerStore
	cache   availabilityCache
	pub     eventPublisher
	clock   clock.Clock
	holdTTL time.Duration
}

func NewHoldService(tx txRunner, holds holdStore, ledger ledgerStore, cache availabilityCache, pub eventPublisher, clk clock.Clock, holdTTL time.Duration) *HoldService {
	return &HoldService{
		tx:      tx,
		holds:   holds,
		ledger:  ledger,
		cache:   cache,
		pub:     pub,
		clock:   clk,
		holdTTL: holdTTL,
	}
}

// normalizeUnits merges duplicate keys, defaults quantity to 1 and returns
// the claims plus the sorted key list used for locking.
func normalizeUnits(units []models.UnitRequest) ([]models.HoldClaim, []string, error) {
	merged := make(map[string]int, len(units))
	for _, u := range units {
		if u.UnitKey == "" || u.Quantity < 0 {
			return nil, nil, apperrors.ErrInvalidUnit
		}
		q := u.Quantity
		if q == 0 {
			q = 1
		}
		merged[u.UnitKey] += q
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	claims := make([]models.HoldClaim, 0, len(keys))
	for _, k := range keys {
		claims = append(claims, models.HoldClaim{UnitKey: k, Quantity: merged[k]})
	}
	return claims, keys, nil
}

// AcquireOrRenew acquires a hold on the requested units, or renews the hold
// named by HoldCode in place. A stale or unknown code falls through to a
// fresh acquisition with a new code; renewal never resurrects a dead hold.
func (s *HoldService) AcquireOrRenew(ctx context.Context, req *models.AcquireHoldRequest) (*models.AcquireHoldResponse, error) {
	claims, keys, err := normalizeUnits(req.Units)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var hold *models.Hold
	var renewed bool

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var existing *models.Hold
		if req.HoldCode != "" {
			h, err := s.holds.GetByCodeForUpdate(ctx, req.HoldCode)
			if err != nil {
				return err
			}
			if h != nil && h.ActiveAt(now) && h.EventID == req.EventID && h.ScheduleID == req.ScheduleID {
				existing = h
			}
		}

		units, err := s.ledger.LockUnits(ctx, req.EventID, req.ScheduleID, keys)
		if err != nil {
			return err
		}
		capacity := make(map[string]int, len(units))
		for _, u := range units {
			capacity[u.UnitKey] = u.Capacity
		}
		for _, k := range keys {
			if _, ok := capacity[k]; !ok {
				return apperrors.ErrUnitNotFound
			}
		}

		claimed, err := s.ledger.ActiveClaims(ctx, req.EventID, req.ScheduleID, now)
		if err != nil {
			return err
		}
		// A renewal competes against everyone else's claims, not its own.
		if existing != nil {
			for _, c := range existing.Claims {
				claimed[c.UnitKey] -= c.Quantity
			}
		}

		var exceeded []string
		for _, c := range claims {
			if capacity[c.UnitKey]-claimed[c.UnitKey] < c.Quantity {
				exceeded = append(exceeded, c.UnitKey)
			}
		}
		if len(exceeded) > 0 {
			return &apperrors.CapacityExceededError{Units: exceeded}
		}

		if existing != nil {
			existing.ExpiresAt = now.Add(s.holdTTL)
			existing.Claims = claims
			if err := s.holds.Renew(ctx, existing); err != nil {
				return err
			}
			hold = existing
			renewed = true
			return nil
		}

		hold = &models.Hold{
			Code:       newCode(16),
			EventID:    req.EventID,
			ScheduleID: req.ScheduleID,
			Claims:     claims,
			ExpiresAt:  now.Add(s.holdTTL),
		}
		return s.holds.Create(ctx, hold)
	})
	if err != nil {
		if _, ok := apperrors.AsCapacityExceeded(err); ok {
			monitoring.HoldsAcquiredTotal.WithLabelValues("capacity_exceeded").Inc()
			monitoring.CapacityRejectionsTotal.Inc()
		}
		return nil, err
	}

	result := "acquired"
	if renewed {
		result = "renewed"
	}
	monitoring.HoldsAcquiredTotal.WithLabelValues(result).Inc()
	s.invalidate(ctx, req.EventID, req.ScheduleID)
	s.publish(models.EventHoldAcquired, models.HoldAcquiredEvent{
		HoldCode:   hold.Code,
		EventID:    hold.EventID,
		ScheduleID: hold.ScheduleID,
		Renewed:    renewed,
		ExpiresAt:  hold.ExpiresAt,
		Timestamp:  now,
	})

	return &models.AcquireHoldResponse{HoldCode: hold.Code, ExpiresAt: hold.ExpiresAt}, nil
}

// Release closes a hold. Unknown, expired and already-closed codes all
// succeed; release is a client courtesy, not a guarded transition.
func (s *HoldService) Release(ctx context.Context, code string) (*models.ReleaseHoldResponse, error) {
	now := s.clock.Now()
	var released *models.Hold

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		h, err := s.holds.GetByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if h == nil || h.ClosedAt != nil {
			return nil
		}
		released = h
		return s.holds.Close(ctx, code, now)
	})
	if err != nil {
		return nil, err
	}

	if released != nil {
		monitoring.HoldsReleasedTotal.Inc()
		s.invalidate(ctx, released.EventID, released.ScheduleID)
		s.publish(models.EventHoldReleased, models.HoldReleasedEvent{
			HoldCode:  code,
			Timestamp: now,
		})
	}

	return &models.ReleaseHoldResponse{OK: true}, nil
}

func (s *HoldService) invalidate(ctx context.Context, eventID, scheduleID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAvailability(ctx, eventID, scheduleID); err != nil {
		logger.WithContext(ctx).Warn("Failed to invalidate availability cache",
			"event_id", eventID, "schedule_id", scheduleID, "error", err)
	}
}

func (s *HoldService) publish(subject string, payload interface{}) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(subject, payload); err != nil {
		logger.Get().Warn("Failed to publish event", "subject", subject, "error", err)
	}
}
