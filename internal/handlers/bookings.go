package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "fastticket/internal/errors"
	"fastticket/internal/models"
)

// Bookings is the slice of the booking service the HTTP layer needs
type Bookings interface {
	Create(ctx context.Context, req *models.CreateBookingRequest) (*models.CreateBookingResponse, error)
	List(ctx context.Context) (models.ListBookingsResponse, error)
	Get(ctx context.Context, id int64) (*models.GetBookingResponse, error)
}

type BookingHandlers struct {
	bookings Bookings
}

func NewBookingHandlers(bookings Bookings) *BookingHandlers {
	return &BookingHandlers{bookings: bookings}
}

// CreateBooking - POST /api/bookings
// Returns 201 with the PENDING booking; the terminal outcome is polled.
func (h *BookingHandlers) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.bookings.Create(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		slog.Error("Failed to create booking", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListBookings - GET /api/bookings
func (h *BookingHandlers) ListBookings(c *gin.Context) {
	response, err := h.bookings.List(c.Request.Context())
	if err != nil {
		if errors.Is(err, apperrors.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		slog.Error("Failed to list bookings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list bookings"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetBooking - GET /api/bookings/:id
func (h *BookingHandlers) GetBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking id"})
		return
	}

	response, err := h.bookings.Get(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		case errors.Is(err, apperrors.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		default:
			slog.Error("Failed to get booking", "error", err, "booking_id", id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get booking"})
		}
		return
	}

	c.JSON(http.StatusOK, response)
}
