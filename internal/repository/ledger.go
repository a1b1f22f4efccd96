package repository

import (
	"context"
	"fmt"
	"time"

	"ovation/internal/database"
	"ovation/internal/models"

	"github.com/lib/pq"
)

// LedgerRepository is the single source of truth for what is claimed. All
// queries are parameterized; claims are aggregated with one statement so the
// view is consistent within a transaction snapshot.
type LedgerRepository struct {
	db *database.DB
}

func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// WithTx runs fn inside one database transaction.
func (r *LedgerRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithTx(ctx, fn)
}

// LockUnits loads the requested inventory units with SELECT ... FOR UPDATE,
// in deterministic key order to avoid lock-order deadlocks. The row locks
// serialize concurrent availability checks against the same units for the
// rest of the transaction.
func (r *LedgerRepository) LockUnits(ctx context.Context, eventID, scheduleID int64, unitKeys []string) ([]models.InventoryUnit, error) {
	const query = `
		SELECT event_id, schedule_id, unit_key, kind, capacity, price
		FROM inventory_units
		WHERE event_id = $1 AND schedule_id = $2 AND unit_key = ANY($3)
		ORDER BY unit_key
		FOR UPDATE`

	rows, err := r.db.Querier(ctx).QueryContext(ctx, query, eventID, scheduleID, pq.Array(unitKeys))
	if err != nil {
		return nil, fmt.Errorf("lock units: %w", err)
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

// ActiveClaims aggregates every live claim against a schedule, keyed by
// unit. Two sources are unioned: open non-expired holds, and tickets whose
// order still binds inventory (completed, or processing with a non-expired
// payment). Converting a hold into an order closes the hold in the same
// transaction, so no claim is ever counted twice.
func (r *LedgerRepository) ActiveClaims(ctx context.Context, eventID, scheduleID int64, now time.Time) (map[string]int, error) {
	const query = `
		SELECT unit_key, SUM(quantity)::int
		FROM (
			SELECT hc.unit_key, hc.quantity
			FROM hold_claims hc
			JOIN holds h ON h.id = hc.hold_id
			WHERE h.event_id = $1 AND h.schedule_id = $2
			  AND h.closed_at IS NULL AND h.expires_at > $3

			UNION ALL

			SELECT t.unit_key, 1 AS quantity
			FROM tickets t
			JOIN orders o ON o.id = t.order_id
			JOIN payments p ON p.order_id = o.id
			WHERE o.event_id = $1 AND o.schedule_id = $2
			  AND t.status IN ('pending_payment', 'booked')
			  AND (o.status = 'completed'
			       OR (o.status = 'processing' AND p.expires_at > $3))
		) claims
		GROUP BY unit_key`

	rows, err := r.db.Querier(ctx).QueryContext(ctx, query, eventID, scheduleID, now)
	if err != nil {
		return nil, fmt.Errorf("aggregate active claims: %w", err)
	}
	defer rows.Close()

	claims := make(map[string]int)
	for rows.Next() {
		var unitKey string
		var quantity int
		if err := rows.Scan(&unitKey, &quantity); err != nil {
			return nil, err
		}
		claims[unitKey] = quantity
	}

	return claims, rows.Err()
}
