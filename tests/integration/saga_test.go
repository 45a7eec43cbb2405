package integration

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fastticket/internal/models"
)

const sagaTimeout = 15 * time.Second

// TestSaga_BookingConfirmed walks the happy path: create an event with
// plenty of capacity, book a ticket, and poll until the reservation
// result flows back through the broker.
func TestSaga_BookingConfirmed(t *testing.T) {
	events := EventsClient(t, 1)
	bookings := BookingClient(t, 1)

	event := events.CreateEvent(t, models.CreateEventRequest{
		Name:         "Saga Happy Path",
		Location:     "Main Arena",
		Price:        decimal.NewFromInt(25),
		TotalTickets: 100,
		Date:         time.Now().AddDate(0, 1, 0),
	})

	booking := bookings.CreateBooking(t, event.ID)
	if booking.Status != models.BookingStatusPending {
		t.Fatalf("Expected new booking to be PENDING, got %s", booking.Status)
	}

	final := bookings.WaitForTerminalStatus(t, booking.ID, sagaTimeout)
	if final.Status != models.BookingStatusConfirmed {
		t.Fatalf("Expected CONFIRMED, got %s", final.Status)
	}
}

// TestSaga_UnknownEventRejected books against an event id that does not
// exist and expects the saga to settle on REJECTED.
func TestSaga_UnknownEventRejected(t *testing.T) {
	bookings := BookingClient(t, 1)

	booking := bookings.CreateBooking(t, 999999999)

	final := bookings.WaitForTerminalStatus(t, booking.ID, sagaTimeout)
	if final.Status != models.BookingStatusRejected {
		t.Fatalf("Expected REJECTED for unknown event, got %s", final.Status)
	}
}

// TestSaga_NoOversell creates an event with a single ticket and races
// several bookings at it. Exactly one may be confirmed.
func TestSaga_NoOversell(t *testing.T) {
	events := EventsClient(t, 1)

	event := events.CreateEvent(t, models.CreateEventRequest{
		Name:         "Saga Last Ticket",
		Location:     "Small Club",
		Price:        decimal.NewFromInt(40),
		TotalTickets: 1,
		Date:         time.Now().AddDate(0, 1, 0),
	})

	const contenders = 5

	var wg sync.WaitGroup
	bookingIDs := make([]int64, contenders)
	clients := make([]*TestClient, contenders)

	for i := 0; i < contenders; i++ {
		clients[i] = BookingClient(t, int64(i+1))
	}

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			booking := clients[i].CreateBooking(t, event.ID)
			bookingIDs[i] = booking.ID
		}(i)
	}
	wg.Wait()

	confirmed := 0
	rejected := 0
	for i := 0; i < contenders; i++ {
		final := clients[i].WaitForTerminalStatus(t, bookingIDs[i], sagaTimeout)
		switch final.Status {
		case models.BookingStatusConfirmed:
			confirmed++
		case models.BookingStatusRejected:
			rejected++
		default:
			t.Fatalf("Booking %d ended in unexpected status %s", bookingIDs[i], final.Status)
		}
	}

	if confirmed != 1 {
		t.Fatalf("Expected exactly 1 confirmed booking, got %d (rejected: %d)", confirmed, rejected)
	}
	if rejected != contenders-1 {
		t.Fatalf("Expected %d rejected bookings, got %d", contenders-1, rejected)
	}
}

// TestSaga_BookingVisibleInList confirms the caller sees their booking
// with its terminal status when listing.
func TestSaga_BookingVisibleInList(t *testing.T) {
	events := EventsClient(t, 2)
	bookings := BookingClient(t, 2)

	event := events.CreateEvent(t, models.CreateEventRequest{
		Name:         "Saga Listing",
		Location:     "River Stage",
		Price:        decimal.NewFromInt(15),
		TotalTickets: 50,
		Date:         time.Now().AddDate(0, 2, 0),
	})

	booking := bookings.CreateBooking(t, event.ID)
	bookings.WaitForTerminalStatus(t, booking.ID, sagaTimeout)

	listed := bookings.ListBookings(t)
	for _, item := range listed {
		if item.ID == booking.ID {
			if item.Status == models.BookingStatusPending {
				t.Fatalf("Booking %d listed as PENDING after terminal status", booking.ID)
			}
			return
		}
	}
	t.Fatalf("Booking %d not found in user's booking list", booking.ID)
}

// TestSaga_HealthEndpoints checks both services report healthy.
func TestSaga_HealthEndpoints(t *testing.T) {
	EventsClient(t, 1).HealthCheck(t)
	BookingClient(t, 1).HealthCheck(t)
}
