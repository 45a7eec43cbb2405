package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"fastticket/internal/auth"
	"fastticket/internal/cache"
	"fastticket/internal/config"
	"fastticket/internal/consumers"
	"fastticket/internal/database"
	"fastticket/internal/handlers"
	"fastticket/internal/messaging"
	"fastticket/internal/metrics"
	"fastticket/internal/middleware"
	"fastticket/internal/outbox"
	"fastticket/internal/repository"
	"fastticket/internal/search"
	"fastticket/internal/service"
)

// EventsServer wires the events (inventory) service: the catalog API, the
// reservation consumer and the relay that delivers reservation replies.
type EventsServer struct {
	router      *gin.Engine
	config      *config.Config
	db          *database.DB
	nats        *messaging.NATSClient
	cache       *cache.AvailabilityCache
	relay       *outbox.Relay
	reservation *consumers.ReservationConsumer
}

func NewEventsServer(cfg *config.Config) (*EventsServer, error) {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to events database: %w", err)
	}

	if err := db.RunEventsMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	var availabilityCache *cache.AvailabilityCache
	if cfg.Cache.Enabled {
		availabilityCache, err = cache.NewAvailabilityCache(cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to availability cache: %w", err)
		}
	}

	var eventIndex *search.EventIndex
	if cfg.Elasticsearch.Enabled {
		eventIndex, err = search.NewEventIndex(search.Config{
			URL:        cfg.Elasticsearch.URL,
			Username:   cfg.Elasticsearch.Username,
			Password:   cfg.Elasticsearch.Password,
			Index:      cfg.Elasticsearch.Index,
			MaxRetries: cfg.Elasticsearch.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
		}
	}

	outboxStore := outbox.NewStore(db)
	relay := outbox.NewRelay(outboxStore, natsClient, cfg.Outbox, "events")

	eventRepo := repository.NewEventRepository(db)
	reservationRepo := repository.NewReservationRepository(db, outboxStore)
	eventService := service.NewEventService(eventRepo, eventIndex, availabilityCache)

	// The cache argument keeps availability fresh after confirmed decrements
	var invalidator consumers.Invalidator
	if availabilityCache != nil {
		invalidator = availabilityCache
	}
	reservation := consumers.NewReservationConsumer(natsClient, reservationRepo, invalidator)

	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())

	server := &EventsServer{
		router:      router,
		config:      cfg,
		db:          db,
		nats:        natsClient,
		cache:       availabilityCache,
		relay:       relay,
		reservation: reservation,
	}

	server.setupRoutes(handlers.NewEventHandlers(eventService), verifier)

	return server, nil
}

func (s *EventsServer) setupRoutes(h *handlers.EventHandlers, verifier auth.TokenVerifier) {
	api := s.router.Group("/api")
	{
		events := api.Group("/events")
		{
			// Listing and search are public; creation requires identity
			events.GET("", h.ListEvents)
			events.GET("/search", h.SearchEvents)
			events.POST("", middleware.BearerAuth(verifier), h.CreateEvent)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", metrics.Handler())
}

func (s *EventsServer) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"service":  "events-service",
		"database": dbHealth,
	})
}

func (s *EventsServer) Start(ctx context.Context) error {
	s.relay.Start(ctx)

	if err := s.reservation.Start(); err != nil {
		return fmt.Errorf("failed to start reservation consumer: %w", err)
	}

	slog.Info("Events service background loops started")
	return nil
}

func (s *EventsServer) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup stops new work first, lets in-flight work settle, then closes
// connections
func (s *EventsServer) Cleanup() error {
	s.reservation.Stop()
	s.relay.Stop()

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			slog.Error("Error closing cache connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
