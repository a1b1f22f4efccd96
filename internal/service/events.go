package service

import (
	"context"

	apperrors "ovation/internal/errors"
	"ovation/internal/logger"
	"ovation/internal/models"
)

// EventService manages the catalog: events, schedules and the inventory
// units they sell.
type EventService struct {
	tx      txRunner
	events  eventStore
	indexer eventIndexer
}

func NewEventService(tx txRunner, events eventStore, indexer eventIndexer) *EventService {
	return &EventService{tx: tx, events: events, indexer: indexer}
}

// Create sets up an event with its schedules and inventory in one
// transaction, then indexes it for search.
func (s *EventService) Create(ctx context.Context, req *models.CreateEventRequest) (*models.CreateEventResponse, error) {
	event := &models.Event{
		Title:    req.Title,
		StartsAt: req.StartsAt,
	}
	if req.Description != "" {
		event.Description = &req.Description
	}

	var scheduleIDs []int64
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.events.CreateEvent(ctx, event); err != nil {
			return err
		}

		for _, sr := range req.Schedules {
			schedule := &models.Schedule{EventID: event.ID, StartsAt: sr.StartsAt}
			if err := s.events.CreateSchedule(ctx, schedule); err != nil {
				return err
			}
			scheduleIDs = append(scheduleIDs, schedule.ID)

			units := make([]models.InventoryUnit, 0, len(sr.Seats)+len(sr.Classes))
			for _, seat := range sr.Seats {
				units = append(units, models.InventoryUnit{
					EventID:    event.ID,
					ScheduleID: schedule.ID,
					UnitKey:    seat,
					Kind:       models.UnitSeat,
					Capacity:   1,
					Price:      sr.SeatPrice,
				})
			}
			for _, class := range sr.Classes {
				units = append(units, models.InventoryUnit{
					EventID:    event.ID,
					ScheduleID: schedule.ID,
					UnitKey:    class.UnitKey,
					Kind:       models.UnitClass,
					Capacity:   class.Capacity,
					Price:      class.Price,
				})
			}
			if err := s.events.CreateUnits(ctx, units); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.indexer != nil {
		if err := s.indexer.IndexEvent(ctx, event); err != nil {
			logger.WithContext(ctx).Warn("Failed to index event",
				"event_id", event.ID, "error", err)
		}
	}

	return &models.CreateEventResponse{ID: event.ID, ScheduleIDs: scheduleIDs}, nil
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}
	return event, nil
}

// Units returns the configured inventory of one schedule.
func (s *EventService) Units(ctx context.Context, eventID, scheduleID int64) ([]models.InventoryUnit, error) {
	exists, err := s.events.ScheduleExists(ctx, eventID, scheduleID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrScheduleNotFound
	}
	return s.events.ListUnits(ctx, eventID, scheduleID)
}

// List returns the catalog page. With a query it goes through the search
// index and falls back to the database when the index is unavailable.
func (s *EventService) List(ctx context.Context, query string, page, pageSize int) (models.ListEventsResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	if s.indexer != nil && query != "" {
		items, err := s.indexer.SearchEvents(ctx, query, page, pageSize)
		if err == nil {
			return items, nil
		}
		logger.WithContext(ctx).Warn("Search failed, falling back to database", "error", err)
	}

	events, err := s.events.List(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	items := make(models.ListEventsResponse, 0, len(events))
	for _, e := range events {
		items = append(items, models.ListEventsResponseItem{
			ID:       e.ID,
			Title:    e.Title,
			StartsAt: e.StartsAt,
		})
	}
	return items, nil
}
