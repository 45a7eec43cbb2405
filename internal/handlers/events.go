package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fastticket/internal/models"
)

// Events is the slice of the event service the HTTP layer needs
type Events interface {
	Create(ctx context.Context, req *models.CreateEventRequest) (*models.CreateEventResponse, error)
	List(ctx context.Context, skip, limit int) (models.ListEventsResponse, error)
	Search(ctx context.Context, query string, limit int) (models.ListEventsResponse, error)
}

type EventHandlers struct {
	events Events
}

func NewEventHandlers(events Events) *EventHandlers {
	return &EventHandlers{events: events}
}

// CreateEvent - POST /api/events
func (h *EventHandlers) CreateEvent(c *gin.Context) {
	var req models.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.events.Create(c.Request.Context(), &req)
	if err != nil {
		slog.Error("Failed to create event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ListEvents - GET /api/events?skip=0&limit=100
func (h *EventHandlers) ListEvents(c *gin.Context) {
	skip := queryInt(c, "skip", 0)
	limit := queryInt(c, "limit", 100)

	response, err := h.events.List(c.Request.Context(), skip, limit)
	if err != nil {
		slog.Error("Failed to list events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
		return
	}

	c.JSON(http.StatusOK, response)
}

// SearchEvents - GET /api/events/search?q=...&limit=20
func (h *EventHandlers) SearchEvents(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query parameter q"})
		return
	}
	limit := queryInt(c, "limit", 20)

	response, err := h.events.Search(c.Request.Context(), query, limit)
	if err != nil {
		slog.Error("Failed to search events", "error", err, "query", query)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search events"})
		return
	}

	c.JSON(http.StatusOK, response)
}

func queryInt(c *gin.Context, key string, defaultValue int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return defaultValue
}
