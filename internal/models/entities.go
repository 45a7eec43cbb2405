package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Booking statuses. PENDING is the only non-terminal state.
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusRejected  = "REJECTED"
)

// Outbox message statuses
const (
	OutboxStatusPending   = "PENDING"
	OutboxStatusProcessed = "PROCESSED"
	OutboxStatusFailed    = "FAILED"
)

// Reservation outcome reasons
const (
	ReasonOK       = "OK"
	ReasonSoldOut  = "SOLD_OUT"
	ReasonNotFound = "NOT_FOUND"
)

// Booking represents a ticket booking owned by the booking service
type Booking struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	EventID   int64     `json:"event_id" db:"event_id"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Event is the inventory ledger record owned by the events service.
// Available capacity is total_tickets - tickets_sold and must never go negative.
type Event struct {
	ID           int64           `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Description  *string         `json:"description" db:"description"`
	Location     string          `json:"location" db:"location"`
	Price        decimal.Decimal `json:"price" db:"price"`
	TotalTickets int             `json:"total_tickets" db:"total_tickets"`
	TicketsSold  int             `json:"tickets_sold" db:"tickets_sold"`
	Date         time.Time       `json:"date" db:"date"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// OutboxMessage is a durable, undelivered domain event co-located with the
// owning service's database. Mutated only by that service's relay.
type OutboxMessage struct {
	ID            int64           `json:"id" db:"id"`
	Topic         string          `json:"topic" db:"topic"`
	Payload       json.RawMessage `json:"payload" db:"payload"`
	Status        string          `json:"status" db:"status"`
	RetryCount    int             `json:"retry_count" db:"retry_count"`
	NextAttemptAt time.Time       `json:"next_attempt_at" db:"next_attempt_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// ProcessedBooking records a reservation decision already applied for a
// booking id, so redelivered requests are not applied twice.
type ProcessedBooking struct {
	BookingID   int64     `json:"booking_id" db:"booking_id"`
	Status      string    `json:"status" db:"status"`
	Reason      string    `json:"reason" db:"reason"`
	ProcessedAt time.Time `json:"processed_at" db:"processed_at"`
}
