package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/stan.go"

	"fastticket/internal/messaging"
	"fastticket/internal/metrics"
	"fastticket/internal/models"
)

// Reserver applies a reservation decision in a single local transaction
// and reports whether the delivery was a duplicate
type Reserver interface {
	Reserve(ctx context.Context, bookingID, eventID int64) (models.ReservationResultEvent, bool, error)
}

// Invalidator drops cached availability after a committed reservation
type Invalidator interface {
	Invalidate(ctx context.Context, eventID int64) error
}

// ReservationConsumer subscribes to booking-events and drives the
// inventory ledger. The broker ack is sent only after the reservation
// transaction commits, so a crash mid-processing replays the message and
// the dedupe record absorbs the replay.
type ReservationConsumer struct {
	nats     *messaging.NATSClient
	reserver Reserver
	cache    Invalidator
	sub      stan.Subscription
}

// NewReservationConsumer creates the consumer. cache may be nil when the
// availability cache is disabled.
func NewReservationConsumer(nats *messaging.NATSClient, reserver Reserver, cache Invalidator) *ReservationConsumer {
	return &ReservationConsumer{
		nats:     nats,
		reserver: reserver,
		cache:    cache,
	}
}

func (c *ReservationConsumer) Start() error {
	sub, err := c.nats.SubscribeQueue(models.TopicBookingEvents, models.QueueGroupEventsService, c.handle)
	if err != nil {
		return err
	}
	c.sub = sub
	return nil
}

// Stop stops pulling new messages. An in-flight message finishes its
// transaction; if its ack is lost the redelivery is absorbed by the
// dedupe check.
func (c *ReservationConsumer) Stop() {
	if c.sub != nil {
		if err := c.sub.Close(); err != nil {
			slog.Error("Failed to close reservation subscription", "error", err)
		}
	}
}

func (c *ReservationConsumer) handle(m *stan.Msg) {
	if c.process(context.Background(), m.Data) {
		if err := m.Ack(); err != nil {
			slog.Error("Failed to ack booking-events message", "error", err)
		}
	}
}

// process handles one delivery and reports whether it should be acked.
// Malformed payloads are acked (redelivery cannot fix them); transient
// failures are not, so the broker redelivers after the ack wait.
func (c *ReservationConsumer) process(ctx context.Context, data []byte) bool {
	var event models.BookingRequestedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("Failed to unmarshal booking requested event", "error", err)
		return true
	}

	if event.Status != models.BookingRequestedStatus || event.EventID == 0 {
		slog.Warn("Ignoring unexpected booking-events payload",
			"status", event.Status, "event_id", event.EventID, "booking_id", event.BookingID)
		return true
	}

	result, duplicate, err := c.reserver.Reserve(ctx, event.BookingID, event.EventID)
	if err != nil {
		slog.Error("Failed to process reservation",
			"error", err,
			"booking_id", event.BookingID,
			"event_id", event.EventID)
		return false
	}

	if duplicate {
		metrics.DuplicateDeliveries.WithLabelValues("reservation").Inc()
		slog.Info("Duplicate booking request absorbed",
			"booking_id", event.BookingID,
			"event_id", event.EventID,
			"status", result.Status)
		return true
	}

	metrics.ReservationResults.WithLabelValues(result.Reason).Inc()
	slog.Info("Reservation decided",
		"booking_id", event.BookingID,
		"event_id", event.EventID,
		"status", result.Status,
		"reason", result.Reason)

	if c.cache != nil && result.Status == models.BookingStatusConfirmed {
		if err := c.cache.Invalidate(ctx, event.EventID); err != nil {
			slog.Warn("Failed to invalidate availability cache",
				"event_id", event.EventID, "error", err)
		}
	}

	return true
}
