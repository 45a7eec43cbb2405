package repository

import (
	"context"
	"database/sql"
	"fmt"

	"fastticket/internal/database"
	"fastticket/internal/models"
	"fastticket/internal/outbox"
)

// ReservationRepository applies reservation decisions to the inventory
// ledger. The row lock, the dedupe record, the stock decrement and the
// reply's outbox row all happen in one local transaction, so the broker
// ack that follows can never acknowledge a half-applied message.
type ReservationRepository struct {
	db     *database.DB
	outbox *outbox.Store
}

func NewReservationRepository(db *database.DB, outboxStore *outbox.Store) *ReservationRepository {
	return &ReservationRepository{db: db, outbox: outboxStore}
}

// Reserve attempts to reserve one ticket for the booking. It returns the
// reservation result and whether this delivery was a duplicate of an
// already-processed booking. Duplicates re-enqueue the original result so
// the reply is identical to the first delivery.
func (r *ReservationRepository) Reserve(ctx context.Context, bookingID, eventID int64) (models.ReservationResultEvent, bool, error) {
	var result models.ReservationResultEvent

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Exclusive row lock. Concurrent reservations for the same event
	// serialize here; other events are unaffected.
	event := &models.Event{}
	lockQuery := `
		SELECT id, total_tickets, tickets_sold
		FROM events
		WHERE id = $1
		FOR UPDATE`
	err = tx.QueryRowContext(ctx, lockQuery, eventID).Scan(
		&event.ID,
		&event.TotalTickets,
		&event.TicketsSold,
	)
	if err == sql.ErrNoRows {
		event = nil
	} else if err != nil {
		return result, false, fmt.Errorf("failed to lock event row: %w", err)
	}

	// Dedupe check under the lock: a redelivery must not decrement again
	var prevStatus, prevReason string
	dedupeQuery := `SELECT status, reason FROM processed_bookings WHERE booking_id = $1`
	err = tx.QueryRowContext(ctx, dedupeQuery, bookingID).Scan(&prevStatus, &prevReason)
	if err == nil {
		result = models.ReservationResultEvent{
			BookingID: bookingID,
			Status:    prevStatus,
			Reason:    prevReason,
		}
		if err := r.outbox.EnqueueTx(ctx, tx, models.TopicBookingConfirmations, result); err != nil {
			return result, false, err
		}
		return result, true, tx.Commit()
	}
	if err != sql.ErrNoRows {
		return result, false, fmt.Errorf("failed to check processed bookings: %w", err)
	}

	status, reason := decideReservation(event)
	if status == models.BookingStatusConfirmed {
		updateQuery := `UPDATE events SET tickets_sold = tickets_sold + 1 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, updateQuery, eventID); err != nil {
			return result, false, fmt.Errorf("failed to increment tickets_sold: %w", err)
		}
	}

	insertQuery := `
		INSERT INTO processed_bookings (booking_id, status, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (booking_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insertQuery, bookingID, status, reason); err != nil {
		return result, false, fmt.Errorf("failed to record processed booking: %w", err)
	}

	result = models.ReservationResultEvent{
		BookingID: bookingID,
		Status:    status,
		Reason:    reason,
	}
	if err := r.outbox.EnqueueTx(ctx, tx, models.TopicBookingConfirmations, result); err != nil {
		return result, false, err
	}

	return result, false, tx.Commit()
}

// decideReservation evaluates the decision policy for a locked ledger row.
// A nil event means the ledger has no record for the requested event id.
func decideReservation(event *models.Event) (status, reason string) {
	switch {
	case event == nil:
		return models.BookingStatusRejected, models.ReasonNotFound
	case event.TicketsSold >= event.TotalTickets:
		return models.BookingStatusRejected, models.ReasonSoldOut
	default:
		return models.BookingStatusConfirmed, models.ReasonOK
	}
}
