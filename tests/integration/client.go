package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"fastticket/internal/auth"
	"fastticket/internal/models"
)

// TestClient provides methods for testing one service's API
type TestClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewTestClient creates a new test client. Token may be empty for
// endpoints that do not require authentication.
func NewTestClient(baseURL, token string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BookingClient builds a client for the booking service, skipping the
// test when BOOKING_API_URL is not set.
func BookingClient(t *testing.T, userID int64) *TestClient {
	baseURL := os.Getenv("BOOKING_API_URL")
	if baseURL == "" {
		t.Skip("BOOKING_API_URL not set, skipping integration test")
	}
	return NewTestClient(baseURL, issueToken(t, userID))
}

// EventsClient builds a client for the events service, skipping the
// test when EVENTS_API_URL is not set.
func EventsClient(t *testing.T, userID int64) *TestClient {
	baseURL := os.Getenv("EVENTS_API_URL")
	if baseURL == "" {
		t.Skip("EVENTS_API_URL not set, skipping integration test")
	}
	return NewTestClient(baseURL, issueToken(t, userID))
}

func issueToken(t *testing.T, userID int64) string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "secret"
	}
	token, err := auth.IssueToken(secret, userID, "user", time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue test token: %v", err)
	}
	return token
}

// makeRequest makes an HTTP request and returns the response
func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// CreateEvent creates a new event
func (c *TestClient) CreateEvent(t *testing.T, req models.CreateEventRequest) *models.CreateEventResponse {
	resp := c.makeRequest(t, "POST", "/api/events", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var event models.CreateEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		t.Fatalf("Failed to decode event response: %v", err)
	}

	return &event
}

// ListEvents lists all events
func (c *TestClient) ListEvents(t *testing.T) models.ListEventsResponse {
	resp := c.makeRequest(t, "GET", "/api/events", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var events models.ListEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("Failed to decode events response: %v", err)
	}

	return events
}

// CreateBooking creates a new booking
func (c *TestClient) CreateBooking(t *testing.T, eventID int64) *models.CreateBookingResponse {
	req := models.CreateBookingRequest{
		EventID: eventID,
	}

	resp := c.makeRequest(t, "POST", "/api/bookings", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var booking models.CreateBookingResponse
	if err := json.NewDecoder(resp.Body).Decode(&booking); err != nil {
		t.Fatalf("Failed to decode booking response: %v", err)
	}

	return &booking
}

// GetBooking fetches a single booking
func (c *TestClient) GetBooking(t *testing.T, bookingID int64) *models.GetBookingResponse {
	path := fmt.Sprintf("/api/bookings/%d", bookingID)
	resp := c.makeRequest(t, "GET", path, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var booking models.GetBookingResponse
	if err := json.NewDecoder(resp.Body).Decode(&booking); err != nil {
		t.Fatalf("Failed to decode booking response: %v", err)
	}

	return &booking
}

// ListBookings lists bookings for the authenticated user
func (c *TestClient) ListBookings(t *testing.T) models.ListBookingsResponse {
	resp := c.makeRequest(t, "GET", "/api/bookings", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d. Body: %s", resp.StatusCode, string(body))
	}

	var bookings models.ListBookingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&bookings); err != nil {
		t.Fatalf("Failed to decode bookings response: %v", err)
	}

	return bookings
}

// WaitForTerminalStatus polls a booking until it leaves PENDING or the
// timeout elapses. Returns the last observed booking.
func (c *TestClient) WaitForTerminalStatus(t *testing.T, bookingID int64, timeout time.Duration) *models.GetBookingResponse {
	deadline := time.Now().Add(timeout)

	var booking *models.GetBookingResponse
	for time.Now().Before(deadline) {
		booking = c.GetBooking(t, bookingID)
		if booking.Status != models.BookingStatusPending {
			return booking
		}
		time.Sleep(200 * time.Millisecond)
	}

	t.Fatalf("Booking %d still PENDING after %s", bookingID, timeout)
	return booking
}

// HealthCheck checks if the API is healthy
func (c *TestClient) HealthCheck(t *testing.T) {
	resp := c.makeRequest(t, "GET", "/health", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Health check failed with status %d", resp.StatusCode)
	}
}
