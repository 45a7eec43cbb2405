package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"fastticket/internal/auth"
	"fastticket/internal/config"
	"fastticket/internal/consumers"
	"fastticket/internal/database"
	"fastticket/internal/handlers"
	"fastticket/internal/jobs"
	"fastticket/internal/messaging"
	"fastticket/internal/metrics"
	"fastticket/internal/middleware"
	"fastticket/internal/outbox"
	"fastticket/internal/repository"
	"fastticket/internal/service"
)

// BookingServer wires the booking service: the HTTP API, the outbox relay,
// the confirmation consumer and the stuck-pending monitor. All handles are
// constructed once here and shut down in reverse order.
type BookingServer struct {
	router       *gin.Engine
	config       *config.Config
	db           *database.DB
	nats         *messaging.NATSClient
	relay        *outbox.Relay
	confirmation *consumers.ConfirmationConsumer
	stuckJob     *jobs.StuckBookingsJob
}

func NewBookingServer(cfg *config.Config) (*BookingServer, error) {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to booking database: %w", err)
	}

	if err := db.RunBookingMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	outboxStore := outbox.NewStore(db)
	relay := outbox.NewRelay(outboxStore, natsClient, cfg.Outbox, "booking")

	bookingRepo := repository.NewBookingRepository(db, outboxStore)
	bookingService := service.NewBookingService(bookingRepo)

	confirmation := consumers.NewConfirmationConsumer(natsClient, bookingRepo)
	stuckJob := jobs.NewStuckBookingsJob(bookingRepo, cfg.StuckThreshold, cfg.StuckCheckInterval)

	verifier := auth.NewJWTVerifier(cfg.Auth.JWTSecret)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())

	server := &BookingServer{
		router:       router,
		config:       cfg,
		db:           db,
		nats:         natsClient,
		relay:        relay,
		confirmation: confirmation,
		stuckJob:     stuckJob,
	}

	server.setupRoutes(handlers.NewBookingHandlers(bookingService), verifier)

	return server, nil
}

func (s *BookingServer) setupRoutes(h *handlers.BookingHandlers, verifier auth.TokenVerifier) {
	api := s.router.Group("/api")
	api.Use(middleware.BearerAuth(verifier))
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.CreateBooking)
			bookings.GET("", h.ListBookings)
			bookings.GET("/:id", h.GetBooking)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", metrics.Handler())
}

func (s *BookingServer) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"service":  "booking-service",
		"database": dbHealth,
	})
}

// Start launches the background loops. They run until Cleanup or until the
// context is cancelled.
func (s *BookingServer) Start(ctx context.Context) error {
	s.relay.Start(ctx)

	if err := s.confirmation.Start(); err != nil {
		return fmt.Errorf("failed to start confirmation consumer: %w", err)
	}

	s.stuckJob.Start(ctx)

	slog.Info("Booking service background loops started")
	return nil
}

func (s *BookingServer) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup stops new work first, lets in-flight work settle, then closes
// connections
func (s *BookingServer) Cleanup() error {
	s.stuckJob.Stop()
	s.confirmation.Stop()
	s.relay.Stop()

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
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
