package repository

import (
	"context"
	"database/sql"
	"fmt"

	"ovation/internal/database"
	"ovation/internal/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}

// CreateEvent inserts the event row and fills in its id and timestamps.
func (r *EventRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	const query = `
		INSERT INTO events (title, description, starts_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	err := r.db.Querier(ctx).QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.StartsAt,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// CreateSchedule inserts one occurrence of an event.
func (r *EventRepository) CreateSchedule(ctx context.Context, schedule *models.Schedule) error {
	const query = `
		INSERT INTO schedules (event_id, starts_at)
		VALUES ($1, $2)
		RETURNING id`

	err := r.db.Querier(ctx).QueryRowContext(ctx, query,
		schedule.EventID,
		schedule.StartsAt,
	).Scan(&schedule.ID)
	if err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// CreateUnits bulk-inserts the inventory of a schedule.
func (r *EventRepository) CreateUnits(ctx context.Context, units []models.InventoryUnit) error {
	q := r.db.Querier(ctx)
	for _, u := range units {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO inventory_units (event_id, schedule_id, unit_key, kind, capacity, price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			u.EventID, u.ScheduleID, u.UnitKey, u.Kind, u.Capacity, u.Price,
		); err != nil {
			return fmt.Errorf("insert unit %s: %w", u.UnitKey, err)
		}
	}
	return nil
}

// GetByID returns the event, or nil when unknown.
func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	const query = `
		SELECT id, title, description, starts_at, created_at, updated_at
		FROM events WHERE id = $1`

	event := &models.Event{}
	err := r.db.Querier(ctx).QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.StartsAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// ScheduleExists reports whether the schedule belongs to the event.
func (r *EventRepository) ScheduleExists(ctx context.Context, eventID, scheduleID int64) (bool, error) {
	var exists bool
	err := r.db.Querier(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM schedules WHERE id = $1 AND event_id = $2)`,
		scheduleID, eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("schedule exists: %w", err)
	}
	return exists, nil
}

// List returns the catalog page ordered by start time. Used as the fallback
// when the search index is unavailable or no query was given.
func (r *EventRepository) List(ctx context.Context, page, pageSize int) ([]models.Event, error) {
	const query = `
		SELECT id, title, description, starts_at, created_at, updated_at
		FROM events
		ORDER BY starts_at ASC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Querier(ctx).QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.StartsAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// ListUnits returns the full inventory of a schedule in key order.
func (r *EventRepository) ListUnits(ctx context.Context, eventID, scheduleID int64) ([]models.InventoryUnit, error) {
	const query = `
		SELECT event_id, schedule_id, unit_key, kind, capacity, price
		FROM inventory_units
		WHERE event_id = $1 AND schedule_id = $2
		ORDER BY unit_key`

	rows, err := r.db.Querier(ctx).QueryContext(ctx, query, eventID, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	var units []models.InventoryUnit
	for rows.Next() {
		var u models.InventoryUnit
		if err := rows.Scan(&u.EventID, &u.ScheduleID, &u.UnitKey, &u.Kind, &u.Capacity, &u.Price); err != nil {
			return nil, err
		}
		units = append(units, u)
	}

	return units, rows.Err()
}
