package service

import (
	"context"
	"fmt"
	"log/slog"

	"fastticket/internal/cache"
	"fastticket/internal/models"
	"fastticket/internal/repository"
	"fastticket/internal/search"
)

// EventService manages the inventory ledger's catalog side: creating
// events, listing them with availability, and full-text search. The
// reservation path never goes through here.
type EventService struct {
	eventRepo *repository.EventRepository
	index     *search.EventIndex
	cache     *cache.AvailabilityCache
}

// NewEventService creates the service. index and availabilityCache may be
// nil when the corresponding backends are disabled.
func NewEventService(eventRepo *repository.EventRepository, index *search.EventIndex, availabilityCache *cache.AvailabilityCache) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		index:     index,
		cache:     availabilityCache,
	}
}

func (s *EventService) Create(ctx context.Context, req *models.CreateEventRequest) (*models.CreateEventResponse, error) {
	event := &models.Event{
		Name:         req.Name,
		Description:  req.Description,
		Location:     req.Location,
		Price:        req.Price,
		TotalTickets: req.TotalTickets,
		Date:         req.Date,
	}

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	// Search indexing is best-effort; the ledger row is already durable
	if s.index != nil {
		if err := s.index.IndexEvent(ctx, event); err != nil {
			slog.Error("Failed to index event for search",
				"event_id", event.ID, "error", err)
		}
	}

	return &models.CreateEventResponse{ID: event.ID}, nil
}

func (s *EventService) List(ctx context.Context, skip, limit int) (models.ListEventsResponse, error) {
	events, err := s.eventRepo.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	result := make(models.ListEventsResponse, len(events))
	for i, event := range events {
		result[i] = s.toListItem(ctx, &event)
	}

	return result, nil
}

// Search resolves matching ids from the search index and hydrates them
// from the ledger
func (s *EventService) Search(ctx context.Context, query string, limit int) (models.ListEventsResponse, error) {
	if s.index == nil {
		return nil, fmt.Errorf("event search is not enabled")
	}

	ids, err := s.index.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}

	result := make(models.ListEventsResponse, 0, len(ids))
	for _, id := range ids {
		event, err := s.eventRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get event %d: %w", id, err)
		}
		if event == nil {
			// Indexed but since removed from the ledger
			continue
		}
		result = append(result, s.toListItem(ctx, event))
	}

	return result, nil
}

// toListItem builds a listing row, going through the availability cache
// when one is configured
func (s *EventService) toListItem(ctx context.Context, event *models.Event) models.ListEventsResponseItem {
	available := event.TotalTickets - event.TicketsSold

	if s.cache != nil {
		if cached, found, err := s.cache.Get(ctx, event.ID); err != nil {
			slog.Warn("Availability cache read failed", "event_id", event.ID, "error", err)
		} else if found {
			available = cached
		} else if err := s.cache.Set(ctx, event.ID, available); err != nil {
			slog.Warn("Availability cache write failed", "event_id", event.ID, "error", err)
		}
	}

	return models.ListEventsResponseItem{
		ID:           event.ID,
		Name:         event.Name,
		Location:     event.Location,
		Price:        event.Price,
		TotalTickets: event.TotalTickets,
		TicketsSold:  event.TicketsSold,
		Available:    available,
		Date:         event.Date,
	}
}
