package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ovation/internal/database"
	"ovation/internal/models"
)

type HoldRepository struct {
	db *database.DB
}

func NewHoldRepository(db *database.DB) *HoldRepository {
	return &HoldRepository{db: db}
}

func (r *HoldRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}

const holdColumns = `id, code, event_id, schedule_id, expires_at, closed_at, created_at`

func (r *HoldRepository) getByCode(ctx context.Context, code string, forUpdate bool) (*models.Hold, error) {
	query := `SELECT ` + holdColumns + ` FROM holds WHERE code = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	hold := &models.Hold{}
	err := r.db.Querier(ctx).QueryRowContext(ctx, query, code).Scan(
		&hold.ID,
		&hold.Code,
		&hold.EventID,
		&hold.ScheduleID,
		&hold.ExpiresAt,
		&hold.ClosedAt,
		&hold.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get hold by code: %w", err)
	}

	claims, err := r.claims(ctx, hold.ID)
	if err != nil {
		return nil, err
	}
	hold.Claims = claims

	return hold, nil
}

// GetByCode returns the hold with its claims, or nil when unknown.
func (r *HoldRepository) GetByCode(ctx context.Context, code string) (*models.Hold, error) {
	return r.getByCode(ctx, code, false)
}

// GetByCodeForUpdate locks the hold row for the rest of the transaction so
// renew and release cannot interleave.
func (r *HoldRepository) GetByCodeForUpdate(ctx context.Context, code string) (*models.Hold, error) {
	return r.getByCode(ctx, code, true)
}

func (r *HoldRepository) claims(ctx context.Context, holdID int64) ([]models.HoldClaim, error) {
	const query = `SELECT unit_key, quantity FROM hold_claims WHERE hold_id = $1 ORDER BY unit_key`

	rows, err := r.db.Querier(ctx).QueryContext(ctx, query, holdID)
	if err != nil {
		return nil, fmt.Errorf("get hold claims: %w", err)
	}
	defer rows.Close()

	var claims []models.HoldClaim
	for rows.Next() {
		var c models.HoldClaim
		if err := rows.Scan(&c.UnitKey, &c.Quantity); err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}

	return claims, rows.Err()
}

// Create persists a new hold and its claims.
func (r *HoldRepository) Create(ctx context.Context, hold *models.Hold) error {
	const query = `
		INSERT INTO holds (code, event_id, schedule_id, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.Querier(ctx).QueryRowContext(ctx, query,
		hold.Code,
		hold.EventID,
		hold.ScheduleID,
		hold.ExpiresAt,
	).Scan(&hold.ID, &hold.CreatedAt)
	if err != nil {
		return fmt.Errorf("create hold: %w", err)
	}

	return r.insertClaims(ctx, hold.ID, hold.Claims)
}

// Renew extends the hold in place: expiry moves forward and the previous
// claims are replaced wholesale. No second hold row is ever created for a
// known code.
func (r *HoldRepository) Renew(ctx context.Context, hold *models.Hold) error {
	q := r.db.Querier(ctx)

	if _, err := q.ExecContext(ctx,
		`UPDATE holds SET expires_at = $1 WHERE id = $2`,
		hold.ExpiresAt, hold.ID,
	); err != nil {
		return fmt.Errorf("renew hold: %w", err)
	}

	if _, err := q.ExecContext(ctx,
		`DELETE FROM hold_claims WHERE hold_id = $1`, hold.ID,
	); err != nil {
		return fmt.Errorf("clear hold claims: %w", err)
	}

	return r.insertClaims(ctx, hold.ID, hold.Claims)
}

func (r *HoldRepository) insertClaims(ctx context.Context, holdID int64, claims []models.HoldClaim) error {
	q := r.db.Querier(ctx)
	for _, c := range claims {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO hold_claims (hold_id, unit_key, quantity) VALUES ($1, $2, $3)`,
			holdID, c.UnitKey, c.Quantity,
		); err != nil {
			return fmt.Errorf("insert hold claim %s: %w", c.UnitKey, err)
		}
	}
	return nil
}

// Close marks the hold inactive. Idempotent: closing an already-closed or
// unknown hold affects no rows and is not an error.
func (r *HoldRepository) Close(ctx context.Context, code string, closedAt time.Time) error {
	_, err := r.db.Querier(ctx).ExecContext(ctx,
		`UPDATE holds SET closed_at = $1 WHERE code = $2 AND closed_at IS NULL`,
		closedAt, code,
	)
	if err != nil {
		return fmt.Errorf("close hold: %w", err)
	}
	return nil
}

// DeleteStale garbage-collects hold rows that have been closed or expired
// for longer than the retention window. Housekeeping only; the availability
// read path never sees these rows anyway.
func (r *HoldRepository) DeleteStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.db.Querier(ctx).ExecContext(ctx,
		`DELETE FROM holds
		 WHERE (closed_at IS NOT NULL AND closed_at < $1)
		    OR (closed_at IS NULL AND expires_at < $1)`,
		olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("delete stale holds: %w", err)
	}
	return res.RowsAffected()
}
