package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fastticket/internal/database"
	"fastticket/internal/models"
	"fastticket/internal/outbox"
)

type BookingRepository struct {
	db     *database.DB
	outbox *outbox.Store
}

func NewBookingRepository(db *database.DB, outboxStore *outbox.Store) *BookingRepository {
	return &BookingRepository{db: db, outbox: outboxStore}
}

// Create inserts the booking as PENDING and enqueues its BookingRequested
// event in the same transaction. Either both rows exist afterwards or
// neither does.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bookings (user_id, event_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	booking.Status = models.BookingStatusPending
	err = tx.QueryRowContext(ctx, query,
		booking.UserID,
		booking.EventID,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	event := models.BookingRequestedEvent{
		EventID:   booking.EventID,
		BookingID: booking.ID,
		UserID:    booking.UserID,
		Status:    models.BookingRequestedStatus,
	}
	if err := r.outbox.EnqueueTx(ctx, tx, models.TopicBookingEvents, event); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `
		SELECT id, user_id, event_id, status, created_at
		FROM bookings
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.EventID,
		&booking.Status,
		&booking.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return booking, err
}

func (r *BookingRepository) GetByUserID(ctx context.Context, userID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	query := `
		SELECT id, user_id, event_id, status, created_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.EventID,
			&booking.Status,
			&booking.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// SetStatusIfPending applies a terminal status only when the booking is
// still PENDING. Returns false when no row changed, either because the
// booking is missing or already terminal.
func (r *BookingRepository) SetStatusIfPending(ctx context.Context, id int64, status string) (bool, error) {
	query := `UPDATE bookings SET status = $1 WHERE id = $2 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// StuckPending reports how many bookings have sat in PENDING since before
// the cutoff, and the creation time of the oldest one.
func (r *BookingRepository) StuckPending(ctx context.Context, cutoff time.Time) (int, *time.Time, error) {
	var count int
	var oldest sql.NullTime
	query := `
		SELECT COUNT(*), MIN(created_at)
		FROM bookings
		WHERE status = 'PENDING' AND created_at < $1`

	if err := r.db.QueryRowContext(ctx, query, cutoff).Scan(&count, &oldest); err != nil {
		return 0, nil, err
	}

	if !oldest.Valid {
		return count, nil, nil
	}
	return count, &oldest.Time, nil
}
