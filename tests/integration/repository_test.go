package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fastticket/internal/config"
	"fastticket/internal/database"
	"fastticket/internal/models"
	"fastticket/internal/outbox"
	"fastticket/internal/repository"
)

// bookingDB connects to the booking service's database, skipping the test
// when BOOKING_DB_HOST is not set.
func bookingDB(t *testing.T) *database.DB {
	if os.Getenv("BOOKING_DB_HOST") == "" {
		t.Skip("BOOKING_DB_HOST not set, skipping database-backed test")
	}

	db, err := database.Connect(config.LoadBooking().Database)
	if err != nil {
		t.Fatalf("Failed to connect to booking database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunBookingMigrations(); err != nil {
		t.Fatalf("Failed to run booking migrations: %v", err)
	}
	return db
}

// eventsDB connects to the events service's database, skipping the test
// when EVENTS_DB_HOST is not set.
func eventsDB(t *testing.T) *database.DB {
	if os.Getenv("EVENTS_DB_HOST") == "" {
		t.Skip("EVENTS_DB_HOST not set, skipping database-backed test")
	}

	db, err := database.Connect(config.LoadEvents().Database)
	if err != nil {
		t.Fatalf("Failed to connect to events database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunEventsMigrations(); err != nil {
		t.Fatalf("Failed to run events migrations: %v", err)
	}
	return db
}

// blockOutboxForUser installs a trigger that makes the outbox insert fail
// for payloads carrying the given user id, so the second half of the
// dual-write can be forced to error mid-transaction.
func blockOutboxForUser(t *testing.T, db *database.DB, userID int64) {
	fn := fmt.Sprintf(`
		CREATE OR REPLACE FUNCTION block_outbox_for_user() RETURNS trigger AS $fn$
		BEGIN
			IF NEW.payload->>'user_id' = '%d' THEN
				RAISE EXCEPTION 'outbox insert blocked for user %d';
			END IF;
			RETURN NEW;
		END;
		$fn$ LANGUAGE plpgsql`, userID, userID)

	if _, err := db.Exec(fn); err != nil {
		t.Fatalf("Failed to create trigger function: %v", err)
	}
	if _, err := db.Exec(`
		CREATE TRIGGER block_outbox_for_user_trigger
		BEFORE INSERT ON outbox_messages
		FOR EACH ROW EXECUTE FUNCTION block_outbox_for_user()`); err != nil {
		t.Fatalf("Failed to create trigger: %v", err)
	}

	t.Cleanup(func() {
		db.Exec(`DROP TRIGGER IF EXISTS block_outbox_for_user_trigger ON outbox_messages`)
		db.Exec(`DROP FUNCTION IF EXISTS block_outbox_for_user()`)
	})
}

// TestBookingCreate_DualWrite verifies that a booking and its outbox event
// commit together: a successful create leaves exactly one of each, and a
// failed outbox insert leaves neither.
func TestBookingCreate_DualWrite(t *testing.T) {
	db := bookingDB(t)
	repo := repository.NewBookingRepository(db, outbox.NewStore(db))
	ctx := context.Background()

	// Distinct per run so assertions see only this test's rows
	okUser := time.Now().UnixNano()
	blockedUser := okUser + 1
	blockOutboxForUser(t, db, blockedUser)

	booking := &models.Booking{UserID: okUser, EventID: 1}
	if err := repo.Create(ctx, booking); err != nil {
		t.Fatalf("Failed to create booking: %v", err)
	}
	if countBookings(t, db, okUser) != 1 {
		t.Fatal("Expected exactly one booking row after create")
	}
	if countOutboxForUser(t, db, okUser) != 1 {
		t.Fatal("Expected exactly one outbox row after create")
	}

	// The blocked user's outbox insert fails inside the transaction; the
	// booking insert must roll back with it
	blocked := &models.Booking{UserID: blockedUser, EventID: 1}
	if err := repo.Create(ctx, blocked); err == nil {
		t.Fatal("Expected create to fail when the outbox insert fails")
	}
	if countBookings(t, db, blockedUser) != 0 {
		t.Fatal("Orphan booking row persisted after failed outbox insert")
	}
	if countOutboxForUser(t, db, blockedUser) != 0 {
		t.Fatal("Orphan outbox row persisted after failed create")
	}
}

func countBookings(t *testing.T, db *database.DB, userID int64) int {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM bookings WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count bookings: %v", err)
	}
	return count
}

func countOutboxForUser(t *testing.T, db *database.DB, userID int64) int {
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM outbox_messages WHERE payload->>'user_id' = $1`,
		fmt.Sprintf("%d", userID)).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to count outbox messages: %v", err)
	}
	return count
}

// TestReserve_RedeliveryDecrementsOnce replays the same booking request
// against the real dedupe table and asserts the stock moved exactly once
// and both deliveries produced the same answer.
func TestReserve_RedeliveryDecrementsOnce(t *testing.T) {
	db := eventsDB(t)
	eventRepo := repository.NewEventRepository(db)
	reservations := repository.NewReservationRepository(db, outbox.NewStore(db))
	ctx := context.Background()

	event := &models.Event{
		Name:         "Redelivery Night",
		Location:     "Test Hall",
		Price:        decimal.NewFromInt(10),
		TotalTickets: 5,
		Date:         time.Now().AddDate(0, 1, 0),
	}
	if err := eventRepo.Create(ctx, event); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	bookingID := time.Now().UnixNano()

	first, duplicate, err := reservations.Reserve(ctx, bookingID, event.ID)
	if err != nil {
		t.Fatalf("First reserve failed: %v", err)
	}
	if duplicate {
		t.Fatal("First delivery flagged as duplicate")
	}
	if first.Status != models.BookingStatusConfirmed || first.Reason != models.ReasonOK {
		t.Fatalf("Expected CONFIRMED/OK, got %s/%s", first.Status, first.Reason)
	}

	second, duplicate, err := reservations.Reserve(ctx, bookingID, event.ID)
	if err != nil {
		t.Fatalf("Redelivered reserve failed: %v", err)
	}
	if !duplicate {
		t.Fatal("Redelivery not flagged as duplicate")
	}
	if second != first {
		t.Fatalf("Redelivery result %+v differs from first %+v", second, first)
	}

	stored, err := eventRepo.GetByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("Failed to reload event: %v", err)
	}
	if stored.TicketsSold != 1 {
		t.Fatalf("Expected tickets_sold = 1 after redelivery, got %d", stored.TicketsSold)
	}
}

// TestReserve_LastTicketSoldOut exhausts a single-ticket event with two
// different bookings and checks the ledger never oversells.
func TestReserve_LastTicketSoldOut(t *testing.T) {
	db := eventsDB(t)
	eventRepo := repository.NewEventRepository(db)
	reservations := repository.NewReservationRepository(db, outbox.NewStore(db))
	ctx := context.Background()

	event := &models.Event{
		Name:         "Single Ticket Night",
		Location:     "Test Hall",
		Price:        decimal.NewFromInt(10),
		TotalTickets: 1,
		Date:         time.Now().AddDate(0, 1, 0),
	}
	if err := eventRepo.Create(ctx, event); err != nil {
		t.Fatalf("Failed to create event: %v", err)
	}

	base := time.Now().UnixNano()

	first, _, err := reservations.Reserve(ctx, base, event.ID)
	if err != nil {
		t.Fatalf("First reserve failed: %v", err)
	}
	if first.Status != models.BookingStatusConfirmed {
		t.Fatalf("Expected first reserve CONFIRMED, got %s", first.Status)
	}

	second, _, err := reservations.Reserve(ctx, base+1, event.ID)
	if err != nil {
		t.Fatalf("Second reserve failed: %v", err)
	}
	if second.Status != models.BookingStatusRejected || second.Reason != models.ReasonSoldOut {
		t.Fatalf("Expected REJECTED/SOLD_OUT, got %s/%s", second.Status, second.Reason)
	}

	stored, err := eventRepo.GetByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("Failed to reload event: %v", err)
	}
	if stored.TicketsSold != 1 {
		t.Fatalf("Expected tickets_sold = 1, got %d", stored.TicketsSold)
	}
}
