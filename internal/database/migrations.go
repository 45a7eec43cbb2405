package database

import (
	"fmt"
	"log/slog"
)

// RunBookingMigrations creates the booking service's tables. The outbox
// table lives next to the bookings table so both can be written in one
// transaction.
func (db *DB) RunBookingMigrations() error {
	return db.runMigrations("booking", []string{
		createBookingsTable,
		createOutboxTable,
		createOutboxDrainIndex,
	})
}

// RunEventsMigrations creates the events service's tables, including its
// own outbox for reservation replies.
func (db *DB) RunEventsMigrations() error {
	return db.runMigrations("events", []string{
		createEventsTable,
		createProcessedBookingsTable,
		createOutboxTable,
		createOutboxDrainIndex,
	})
}

func (db *DB) runMigrations(service string, migrations []string) error {
	slog.Info("Running database migrations", "service", service)

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed", "service", service, "count", len(migrations))
	return nil
}

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id SERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    event_id BIGINT NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    name VARCHAR(500) NOT NULL,
    description TEXT,
    location VARCHAR(500) NOT NULL,
    price NUMERIC(12,2) NOT NULL,
    total_tickets INTEGER NOT NULL,
    tickets_sold INTEGER NOT NULL DEFAULT 0,
    date TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT tickets_sold_within_capacity CHECK (tickets_sold <= total_tickets)
);`

const createProcessedBookingsTable = `
CREATE TABLE IF NOT EXISTS processed_bookings (
    booking_id BIGINT PRIMARY KEY,
    status VARCHAR(20) NOT NULL,
    reason VARCHAR(20) NOT NULL,
    processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createOutboxTable = `
CREATE TABLE IF NOT EXISTS outbox_messages (
    id SERIAL PRIMARY KEY,
    topic VARCHAR(255) NOT NULL,
    payload JSONB NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    retry_count INTEGER NOT NULL DEFAULT 0,
    next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createOutboxDrainIndex = `
CREATE INDEX IF NOT EXISTS idx_outbox_pending
    ON outbox_messages (next_attempt_at, created_at)
    WHERE status = 'PENDING';`
