package service

import (
	"context"
	"fmt"

	apperrors "fastticket/internal/errors"
	"fastticket/internal/middleware"
	"fastticket/internal/models"
	"fastticket/internal/repository"
)

// BookingService is the saga producer side. Creating a booking writes the
// PENDING row and its outbox event atomically and returns immediately; the
// terminal outcome arrives later through the confirmation consumer.
type BookingService struct {
	bookingRepo *repository.BookingRepository
}

func NewBookingService(bookingRepo *repository.BookingRepository) *BookingService {
	return &BookingService{bookingRepo: bookingRepo}
}

func (s *BookingService) Create(ctx context.Context, req *models.CreateBookingRequest) (*models.CreateBookingResponse, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}

	booking := &models.Booking{
		UserID:  userID,
		EventID: req.EventID,
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	return &models.CreateBookingResponse{
		ID:        booking.ID,
		EventID:   booking.EventID,
		Status:    booking.Status,
		CreatedAt: booking.CreatedAt,
	}, nil
}

func (s *BookingService) List(ctx context.Context) (models.ListBookingsResponse, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}

	bookings, err := s.bookingRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	result := make(models.ListBookingsResponse, len(bookings))
	for i, booking := range bookings {
		result[i] = models.ListBookingsResponseItem{
			ID:        booking.ID,
			EventID:   booking.EventID,
			Status:    booking.Status,
			CreatedAt: booking.CreatedAt,
		}
	}

	return result, nil
}

// Get returns one booking for status polling. Only the owner can see it.
func (s *BookingService) Get(ctx context.Context, id int64) (*models.GetBookingResponse, error) {
	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return nil, apperrors.ErrUnauthorized
	}

	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil || booking.UserID != userID {
		return nil, apperrors.ErrBookingNotFound
	}

	return &models.GetBookingResponse{
		ID:        booking.ID,
		EventID:   booking.EventID,
		UserID:    booking.UserID,
		Status:    booking.Status,
		CreatedAt: booking.CreatedAt,
	}, nil
}
