package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ovation/internal/database"
)

// LeaseRepository implements the storage-backed debounce for background
// sweeps. Keeping the "last run" timestamp in a row instead of a process
// variable stops multiple instances from firing the same sweep together.
type LeaseRepository struct {
	db *database.DB
}

func NewLeaseRepository(db *database.DB) *LeaseRepository {
	return &LeaseRepository{db: db}
}

// Acquire claims the named lease if its last run is older than the debounce
// window. Returns false when another holder ran recently.
func (r *LeaseRepository) Acquire(ctx context.Context, name, holder string, debounce time.Duration, now time.Time) (bool, error) {
	const query = `
		INSERT INTO reaper_leases (name, holder, last_run_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET holder = EXCLUDED.holder, last_run_at = EXCLUDED.last_run_at
		WHERE reaper_leases.last_run_at <= $4
		RETURNING name`

	var acquired string
	err := r.db.Querier(ctx).QueryRowContext(ctx, query,
		name, holder, now, now.Add(-debounce),
	).Scan(&acquired)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	return true, nil
}
