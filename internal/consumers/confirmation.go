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

// BookingStatusStore is the slice of the booking repository the
// confirmation consumer needs
type BookingStatusStore interface {
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	SetStatusIfPending(ctx context.Context, id int64, status string) (bool, error)
}

// ConfirmationConsumer subscribes to booking-confirmations and moves
// bookings out of PENDING. Terminal bookings are never touched again, so
// duplicate confirmations are no-ops.
type ConfirmationConsumer struct {
	nats     *messaging.NATSClient
	bookings BookingStatusStore
	sub      stan.Subscription
}

func NewConfirmationConsumer(nats *messaging.NATSClient, bookings BookingStatusStore) *ConfirmationConsumer {
	return &ConfirmationConsumer{
		nats:     nats,
		bookings: bookings,
	}
}

func (c *ConfirmationConsumer) Start() error {
	sub, err := c.nats.SubscribeQueue(models.TopicBookingConfirmations, models.QueueGroupBookingService, c.handle)
	if err != nil {
		return err
	}
	c.sub = sub
	return nil
}

func (c *ConfirmationConsumer) Stop() {
	if c.sub != nil {
		if err := c.sub.Close(); err != nil {
			slog.Error("Failed to close confirmation subscription", "error", err)
		}
	}
}

func (c *ConfirmationConsumer) handle(m *stan.Msg) {
	if c.process(context.Background(), m.Data) {
		if err := m.Ack(); err != nil {
			slog.Error("Failed to ack booking-confirmations message", "error", err)
		}
	}
}

// process handles one delivery and reports whether it should be acked
func (c *ConfirmationConsumer) process(ctx context.Context, data []byte) bool {
	var event models.ReservationResultEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("Failed to unmarshal reservation result event", "error", err)
		return true
	}

	if event.Status != models.BookingStatusConfirmed && event.Status != models.BookingStatusRejected {
		slog.Warn("Ignoring reservation result with unknown status",
			"booking_id", event.BookingID, "status", event.Status)
		return true
	}

	updated, err := c.bookings.SetStatusIfPending(ctx, event.BookingID, event.Status)
	if err != nil {
		slog.Error("Failed to update booking status",
			"error", err, "booking_id", event.BookingID, "status", event.Status)
		return false
	}

	if updated {
		slog.Info("Booking status updated",
			"booking_id", event.BookingID,
			"status", event.Status,
			"reason", event.Reason)
		return true
	}

	// Nothing changed: the booking is either already terminal (duplicate
	// delivery) or missing. Both are discarded, not failed.
	booking, err := c.bookings.GetByID(ctx, event.BookingID)
	if err != nil {
		slog.Error("Failed to look up booking for confirmation",
			"error", err, "booking_id", event.BookingID)
		return false
	}

	if booking == nil {
		slog.Warn("Confirmation for unknown booking discarded",
			"booking_id", event.BookingID, "status", event.Status)
		return true
	}

	metrics.DuplicateDeliveries.WithLabelValues("confirmation").Inc()
	slog.Info("Confirmation for terminal booking absorbed",
		"booking_id", event.BookingID,
		"current_status", booking.Status,
		"delivered_status", event.Status)
	return true
}
