package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

var (
	// OutboxPublished counts broker-acked outbox deliveries per topic
	OutboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fastticket_outbox_published_total",
		Help: "Outbox messages successfully published to the broker",
	}, []string{"service", "topic"})

	// OutboxPublishFailures counts publish attempts that will be retried or parked
	OutboxPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fastticket_outbox_publish_failures_total",
		Help: "Outbox publish attempts that failed",
	}, []string{"service", "topic"})

	// ReservationResults counts inventory decisions by outcome reason
	ReservationResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fastticket_reservation_results_total",
		Help: "Reservation decisions by reason",
	}, []string{"reason"})

	// DuplicateDeliveries counts redelivered messages absorbed by idempotency checks
	DuplicateDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fastticket_duplicate_deliveries_total",
		Help: "Redelivered broker messages absorbed without side effects",
	}, []string{"consumer"})

	// StuckPendingBookings gauges bookings sitting in PENDING past the threshold
	StuckPendingBookings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fastticket_stuck_pending_bookings",
		Help: "Bookings in PENDING older than the configured threshold",
	})

	// OldestPendingAge gauges the age in seconds of the oldest PENDING booking
	OldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fastticket_oldest_pending_booking_age_seconds",
		Help: "Age of the oldest booking still in PENDING",
	})
)

// Handler returns the /metrics endpoint handler
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
