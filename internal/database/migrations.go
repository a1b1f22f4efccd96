package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createEventsTable,
		createSchedulesTable,
		createInventoryUnitsTable,
		createHoldsTable,
		createHoldClaimsTable,
		createOrdersTable,
		createPaymentsTable,
		createTicketsTable,
		createCheckinRecordsTable,
		createCheckinUniqueIndex,
		createReaperLeasesTable,
		createHoldsExpiryIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    description TEXT,
    starts_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createSchedulesTable = `
CREATE TABLE IF NOT EXISTS schedules (
    id BIGSERIAL PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    starts_at TIMESTAMPTZ NOT NULL
);`

const createInventoryUnitsTable = `
CREATE TABLE IF NOT EXISTS inventory_units (
    event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    schedule_id BIGINT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
    unit_key VARCHAR(255) NOT NULL,
    kind VARCHAR(10) NOT NULL,
    capacity INTEGER NOT NULL,
    price BIGINT NOT NULL DEFAULT 0,

    PRIMARY KEY (event_id, schedule_id, unit_key),
    CHECK (kind IN ('seat', 'class')),
    CHECK (capacity >= 1),
    CHECK (kind <> 'seat' OR capacity = 1)
);`

const createHoldsTable = `
CREATE TABLE IF NOT EXISTS holds (
    id BIGSERIAL PRIMARY KEY,
    code VARCHAR(64) UNIQUE NOT NULL,
    event_id BIGINT NOT NULL,
    schedule_id BIGINT NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL,
    closed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createHoldClaimsTable = `
CREATE TABLE IF NOT EXISTS hold_claims (
    id BIGSERIAL PRIMARY KEY,
    hold_id BIGINT NOT NULL REFERENCES holds(id) ON DELETE CASCADE,
    unit_key VARCHAR(255) NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 1),

    UNIQUE (hold_id, unit_key)
);`

const createOrdersTable = `
CREATE TABLE IF NOT EXISTS orders (
    id UUID PRIMARY KEY,
    event_id BIGINT NOT NULL,
    schedule_id BIGINT NOT NULL,
    user_id BIGINT,
    hold_code VARCHAR(64),
    status VARCHAR(20) NOT NULL DEFAULT 'processing',
    total_amount BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('processing', 'completed', 'canceled'))
);`

const createPaymentsTable = `
CREATE TABLE IF NOT EXISTS payments (
    id UUID PRIMARY KEY,
    order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    status VARCHAR(20) NOT NULL DEFAULT 'processing',
    amount BIGINT NOT NULL DEFAULT 0,
    expires_at TIMESTAMPTZ NOT NULL,
    paid_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('processing', 'paid', 'failed', 'canceled'))
);`

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    id UUID PRIMARY KEY,
    order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
    event_id BIGINT NOT NULL,
    schedule_id BIGINT NOT NULL,
    unit_key VARCHAR(255) NOT NULL,
    ticket_code VARCHAR(64) UNIQUE NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending_payment',

    CHECK (status IN ('pending_payment', 'booked', 'cancelled'))
);`

const createCheckinRecordsTable = `
CREATE TABLE IF NOT EXISTS checkin_records (
    id BIGSERIAL PRIMARY KEY,
    ticket_code VARCHAR(64) NOT NULL,
    operator_id VARCHAR(255) NOT NULL,
    checked_in_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    deleted_at TIMESTAMPTZ
);`

// The partial unique index makes concurrent check-ins race safely: the
// second insert fails with a unique violation instead of creating a
// duplicate record.
const createCheckinUniqueIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS checkin_records_ticket_code_active_idx
ON checkin_records (ticket_code) WHERE deleted_at IS NULL;`

const createReaperLeasesTable = `
CREATE TABLE IF NOT EXISTS reaper_leases (
    name VARCHAR(100) PRIMARY KEY,
    holder VARCHAR(255) NOT NULL DEFAULT '',
    last_run_at TIMESTAMPTZ NOT NULL DEFAULT 'epoch'
);`

const createHoldsExpiryIndex = `
CREATE INDEX IF NOT EXISTS holds_open_expiry_idx
ON holds (event_id, schedule_id, expires_at) WHERE closed_at IS NULL;`
