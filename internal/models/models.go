package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateEventRequest - request body for creating an event
type CreateEventRequest struct {
	Name         string          `json:"name" binding:"required"`
	Description  *string         `json:"description"`
	Location     string          `json:"location" binding:"required"`
	Price        decimal.Decimal `json:"price" binding:"required"`
	TotalTickets int             `json:"total_tickets" binding:"required,gt=0"`
	Date         time.Time       `json:"date" binding:"required"`
}

// CreateEventResponse - response body after creating an event
type CreateEventResponse struct {
	ID int64 `json:"id"`
}

// ListEventsResponseItem - one event in the listing
type ListEventsResponseItem struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Location     string          `json:"location"`
	Price        decimal.Decimal `json:"price"`
	TotalTickets int             `json:"total_tickets"`
	TicketsSold  int             `json:"tickets_sold"`
	Available    int             `json:"available"`
	Date         time.Time       `json:"date"`
}

// ListEventsResponse - event listing
type ListEventsResponse []ListEventsResponseItem

// CreateBookingRequest - request body for booking a ticket
type CreateBookingRequest struct {
	EventID int64 `json:"event_id" binding:"required"`
}

// CreateBookingResponse - response body after creating a booking.
// Status is always PENDING here; clients poll for the terminal outcome.
type CreateBookingResponse struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// GetBookingResponse - response body when polling a booking
type GetBookingResponse struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	UserID    int64     `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ListBookingsResponseItem - one booking in the caller's listing
type ListBookingsResponseItem struct {
	ID        int64     `json:"id"`
	EventID   int64     `json:"event_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ListBookingsResponse - booking listing
type ListBookingsResponse []ListBookingsResponseItem
