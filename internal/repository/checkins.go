package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ovation/internal/database"
	"ovation/internal/models"

	"github.com/lib/pq"
)

// ErrDuplicateCheckin is returned when the partial unique index rejects a
// second active record for the same ticket code. Callers re-read the winner.
var ErrDuplicateCheckin = errors.New("checkin record already exists")

type CheckinRepository struct {
	db *database.DB
}

func NewCheckinRepository(db *database.DB) *CheckinRepository {
	return &CheckinRepository{db: db}
}

// GetTicketByCode returns the ticket, or nil when unknown.
func (r *CheckinRepository) GetTicketByCode(ctx context.Context, ticketCode string) (*models.Ticket, error) {
	const query = `
		SELECT id, order_id, event_id, schedule_id, unit_key, ticket_code, status
		FROM tickets WHERE ticket_code = $1`

	ticket := &models.Ticket{}
	err := r.db.Querier(ctx).QueryRowContext(ctx, query, ticketCode).Scan(
		&ticket.ID,
		&ticket.OrderID,
		&ticket.EventID,
		&ticket.ScheduleID,
		&ticket.UnitKey,
		&ticket.TicketCode,
		&ticket.Status,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket by code: %w", err)
	}
	return ticket, nil
}

// GetOrderStatus returns the status of the ticket's order.
func (r *CheckinRepository) GetOrderStatus(ctx context.Context, orderID string) (string, error) {
	var status string
	err := r.db.Querier(ctx).QueryRowContext(ctx,
		`SELECT status FROM orders WHERE id = $1`, orderID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get order status: %w", err)
	}
	return status, nil
}

// InsertRecord creates the check-in record. The insert races safely against
// the partial unique index on (ticket_code) WHERE deleted_at IS NULL: a
// concurrent winner surfaces as ErrDuplicateCheckin, never as a second row.
func (r *CheckinRepository) InsertRecord(ctx context.Context, record *models.CheckinRecord) error {
	const query = `
		INSERT INTO checkin_records (ticket_code, operator_id, checked_in_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := r.db.Querier(ctx).QueryRowContext(ctx, query,
		record.TicketCode,
		record.OperatorID,
		record.CheckedInAt,
	).Scan(&record.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateCheckin
		}
		return fmt.Errorf("insert checkin record: %w", err)
	}
	return nil
}

// GetActiveRecord returns the non-deleted record for a ticket code, or nil.
func (r *CheckinRepository) GetActiveRecord(ctx context.Context, ticketCode string) (*models.CheckinRecord, error) {
	const query = `
		SELECT id, ticket_code, operator_id, checked_in_at, deleted_at
		FROM checkin_records
		WHERE ticket_code = $1 AND deleted_at IS NULL`

	record := &models.CheckinRecord{}
	err := r.db.Querier(ctx).QueryRowContext(ctx, query, ticketCode).Scan(
		&record.ID,
		&record.TicketCode,
		&record.OperatorID,
		&record.CheckedInAt,
		&record.DeletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkin record: %w", err)
	}
	return record, nil
}
