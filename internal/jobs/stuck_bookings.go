package jobs

import (
	"context"
	"log/slog"
	"time"

	"fastticket/internal/metrics"
)

// StuckStore reports bookings stuck in PENDING
type StuckStore interface {
	StuckPending(ctx context.Context, cutoff time.Time) (int, *time.Time, error)
}

// StuckBookingsJob periodically measures bookings that have stayed PENDING
// past the threshold and exposes them through metrics and logs. It never
// reverses a booking; the saga's retries remain the only writers.
type StuckBookingsJob struct {
	bookings  StuckStore
	threshold time.Duration
	interval  time.Duration
	ticker    *time.Ticker
	done      chan struct{}
}

func NewStuckBookingsJob(bookings StuckStore, threshold, interval time.Duration) *StuckBookingsJob {
	return &StuckBookingsJob{
		bookings:  bookings,
		threshold: threshold,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (j *StuckBookingsJob) Start(ctx context.Context) {
	slog.Info("Starting stuck-pending monitor",
		"threshold", j.threshold, "check_interval", j.interval)

	j.ticker = time.NewTicker(j.interval)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				j.Check(ctx)
			case <-ctx.Done():
				return
			case <-j.done:
				slog.Info("Stuck-pending monitor stopped")
				return
			}
		}
	}()
}

func (j *StuckBookingsJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

// Check takes one measurement and publishes it
func (j *StuckBookingsJob) Check(ctx context.Context) {
	cutoff := time.Now().Add(-j.threshold)

	count, oldest, err := j.bookings.StuckPending(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to measure stuck pending bookings", "error", err)
		return
	}

	metrics.StuckPendingBookings.Set(float64(count))

	if oldest != nil {
		metrics.OldestPendingAge.Set(time.Since(*oldest).Seconds())
	} else {
		metrics.OldestPendingAge.Set(0)
	}

	if count > 0 {
		slog.Warn("Bookings stuck in PENDING past threshold",
			"count", count,
			"threshold", j.threshold,
			"oldest_created_at", oldest)
	}
}
