package service

import (
	"context"
	"encoding/json"

	"ovation/internal/clock"
	apperrors "ovation/internal/errors"
	"ovation/internal/logger"
	"ovation/internal/models"
	"ovation/internal/monitoring"
)

// AvailabilityService computes the remaining capacity of every unit in a
// schedule. The snapshot is derived on demand from the ledger, never stored;
// the cache in front of it is a short-TTL read optimization.
type AvailabilityService struct {
	events eventStore
	ledger ledgerStore
	cache  availabilityCache
	clock  clock.Clock
}

func NewAvailabilityService(events eventStore, ledger ledgerStore, cache availabilityCache, clk clock.Clock) *AvailabilityService {
	return &AvailabilityService{events: events, ledger: ledger, cache: cache, clock: clk}
}

// Snapshot returns the per-unit remaining capacity for a schedule.
func (s *AvailabilityService) Snapshot(ctx context.Context, eventID, scheduleID int64) (*models.AvailabilityResponse, error) {
	if s.cache != nil {
		if raw, err := s.cache.GetAvailabilityRaw(ctx, eventID, scheduleID); err == nil {
			var cached models.AvailabilityResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				monitoring.AvailabilityCacheTotal.WithLabelValues("hit").Inc()
				return &cached, nil
			}
		}
		monitoring.AvailabilityCacheTotal.WithLabelValues("miss").Inc()
	}

	exists, err := s.events.ScheduleExists(ctx, eventID, scheduleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrScheduleNotFound
	}

	units, err := s.events.ListUnits(ctx, eventID, scheduleID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.ledger.ActiveClaims(ctx, eventID, scheduleID, s.clock.Now())
	if err != nil {
		return nil, err
	}

	resp := &models.AvailabilityResponse{
		EventID:    eventID,
		ScheduleID: scheduleID,
		Units:      make([]models.AvailabilityItem, 0, len(units)),
	}
	for _, u := range units {
		remaining := u.Capacity - claimed[u.UnitKey]
		if remaining < 0 {
			// Claims should never exceed capacity. Report the broken unit
			// and fail safe toward showing it as sold out.
			logger.WithContext(ctx).Error("Remaining capacity below zero",
				"event_id", eventID, "schedule_id", scheduleID,
				"unit_key", u.UnitKey, "capacity", u.Capacity,
				"claimed", claimed[u.UnitKey], "error", apperrors.ErrLedgerInconsistency)
			remaining = 0
		}
		resp.Units = append(resp.Units, models.AvailabilityItem{
			UnitKey:   u.UnitKey,
			Kind:      u.Kind,
			Capacity:  u.Capacity,
			Remaining: remaining,
		})
	}

	if s.cache != nil {
		if err := s.cache.SetAvailability(ctx, eventID, scheduleID, resp); err != nil {
			logger.WithContext(ctx).Warn("Failed to cache availability snapshot",
				"event_id", eventID, "schedule_id", scheduleID, "error", err)
		}
	}

	return resp, nil
}
