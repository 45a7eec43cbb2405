package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fastticket/internal/database"
	"fastticket/internal/models"
)

// Store persists undelivered domain events next to the owning service's
// business tables. Enqueueing happens inside the caller's transaction, so
// the business write and the event intent commit or roll back together.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// EnqueueTx appends a PENDING outbox row within the caller's transaction.
// It never commits on its own.
func (s *Store) EnqueueTx(ctx context.Context, tx *sql.Tx, topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	query := `
		INSERT INTO outbox_messages (topic, payload, status, retry_count, next_attempt_at)
		VALUES ($1, $2, 'PENDING', 0, NOW())`

	if _, err := tx.ExecContext(ctx, query, topic, payload); err != nil {
		return fmt.Errorf("failed to enqueue outbox message: %w", err)
	}
	return nil
}

// DrainBatch returns up to limit PENDING messages that are due for delivery,
// oldest first to bound staleness.
func (s *Store) DrainBatch(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	query := `
		SELECT id, topic, payload, status, retry_count, next_attempt_at, created_at
		FROM outbox_messages
		WHERE status = 'PENDING' AND next_attempt_at <= NOW()
		ORDER BY created_at
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to drain outbox: %w", err)
	}
	defer rows.Close()

	var messages []models.OutboxMessage
	for rows.Next() {
		var msg models.OutboxMessage
		err := rows.Scan(
			&msg.ID,
			&msg.Topic,
			&msg.Payload,
			&msg.Status,
			&msg.RetryCount,
			&msg.NextAttemptAt,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// MarkProcessed records a broker ack for the message
func (s *Store) MarkProcessed(ctx context.Context, id int64) error {
	query := `UPDATE outbox_messages SET status = 'PROCESSED' WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

// Reschedule leaves the message PENDING with an incremented retry count and
// a delayed next attempt
func (s *Store) Reschedule(ctx context.Context, id int64, retryCount int, nextAttempt time.Time) error {
	query := `UPDATE outbox_messages SET retry_count = $2, next_attempt_at = $3 WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id, retryCount, nextAttempt)
	return err
}

// MarkFailed parks the message after the retry ceiling, recording the
// final attempt count. FAILED rows are terminal and only surface through
// metrics and logs.
func (s *Store) MarkFailed(ctx context.Context, id int64, retryCount int) error {
	query := `UPDATE outbox_messages SET status = 'FAILED', retry_count = $2 WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id, retryCount)
	return err
}

// CountPending is exposed for health checks and tests
func (s *Store) CountPending(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox_messages WHERE status = 'PENDING'`).Scan(&count)
	return count, err
}
