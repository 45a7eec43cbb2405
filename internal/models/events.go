package models

// Broker topics and queue groups. One durable queue group per service so
// instances of the same service share partition assignment.
const (
	TopicBookingEvents        = "booking-events"
	TopicBookingConfirmations = "booking-confirmations"

	QueueGroupBookingService = "booking-service"
	QueueGroupEventsService  = "events-service"
)

// BookingRequestedStatus is the marker carried on booking-events payloads
const BookingRequestedStatus = "booked"

// BookingRequestedEvent is published by the booking service when a booking
// is created. Carried on the booking-events topic.
type BookingRequestedEvent struct {
	EventID   int64  `json:"event_id"`
	BookingID int64  `json:"booking_id"`
	UserID    int64  `json:"user_id"`
	Status    string `json:"status"`
}

// ReservationResultEvent is published by the events service after the
// inventory decision. Carried on the booking-confirmations topic.
type ReservationResultEvent struct {
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}
