package outbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fastticket/internal/metrics"
	"fastticket/internal/models"
)

// Config holds the relay tunables. The interval trades delivery latency
// against database and broker load.
type Config struct {
	RelayInterval time.Duration
	BatchSize     int
	MaxRetries    int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
}

// Publisher is the broker side of the relay. Publish must not return until
// the broker has acked the message.
type Publisher interface {
	Publish(subject string, payload []byte) error
}

// MessageStore is the durable queue the relay drains
type MessageStore interface {
	DrainBatch(ctx context.Context, limit int) ([]models.OutboxMessage, error)
	MarkProcessed(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, retryCount int, nextAttempt time.Time) error
	MarkFailed(ctx context.Context, id int64, retryCount int) error
}

// Relay drains the outbox store on a fixed interval and publishes each
// pending message to the broker. A failed publish reschedules the row with
// backoff instead of blocking the rest of the batch, so delivery is
// at-least-once and duplicates are possible after a crash between the
// broker ack and the PROCESSED update.
type Relay struct {
	store     MessageStore
	publisher Publisher
	cfg       Config
	service   string
	done      chan struct{}
	stopped   chan struct{}
	started   bool
	stopOnce  sync.Once
}

func NewRelay(store MessageStore, publisher Publisher, cfg Config, service string) *Relay {
	return &Relay{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		service:   service,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Start launches the relay loop. The loop runs cycles synchronously so a
// slow broker never causes overlapping drains of the same rows.
func (r *Relay) Start(ctx context.Context) {
	slog.Info("Starting outbox relay",
		"service", r.service,
		"interval", r.cfg.RelayInterval,
		"batch_size", r.cfg.BatchSize)

	ticker := time.NewTicker(r.cfg.RelayInterval)
	r.started = true

	go func() {
		defer ticker.Stop()
		defer close(r.stopped)
		for {
			select {
			case <-ticker.C:
				r.RunCycle(ctx)
			case <-ctx.Done():
				slog.Info("Outbox relay stopped", "service", r.service)
				return
			case <-r.done:
				slog.Info("Outbox relay stopped", "service", r.service)
				return
			}
		}
	}()
}

// Stop stops the loop and waits for an in-flight cycle to finish. Safe to
// call more than once, and a no-op when Start was never called.
func (r *Relay) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		if r.started {
			<-r.stopped
		}
	})
}

// RunCycle drains one batch and attempts delivery of every message in it
func (r *Relay) RunCycle(ctx context.Context) {
	batch, err := r.store.DrainBatch(ctx, r.cfg.BatchSize)
	if err != nil {
		slog.Error("Failed to drain outbox batch", "service", r.service, "error", err)
		return
	}

	if len(batch) == 0 {
		return
	}

	for _, msg := range batch {
		r.deliver(ctx, msg)
	}
}

func (r *Relay) deliver(ctx context.Context, msg models.OutboxMessage) {
	if err := r.publisher.Publish(msg.Topic, msg.Payload); err != nil {
		retryCount := msg.RetryCount + 1
		metrics.OutboxPublishFailures.WithLabelValues(r.service, msg.Topic).Inc()

		if retryCount >= r.cfg.MaxRetries {
			slog.Error("Outbox message exceeded retry ceiling, parking as FAILED",
				"service", r.service,
				"message_id", msg.ID,
				"topic", msg.Topic,
				"retry_count", retryCount,
				"error", err)
			if err := r.store.MarkFailed(ctx, msg.ID, retryCount); err != nil {
				slog.Error("Failed to mark outbox message FAILED", "message_id", msg.ID, "error", err)
			}
			return
		}

		nextAttempt := time.Now().Add(r.backoff(retryCount))
		slog.Warn("Failed to publish outbox message, rescheduling",
			"service", r.service,
			"message_id", msg.ID,
			"topic", msg.Topic,
			"retry_count", retryCount,
			"next_attempt_at", nextAttempt,
			"error", err)
		if err := r.store.Reschedule(ctx, msg.ID, retryCount, nextAttempt); err != nil {
			slog.Error("Failed to reschedule outbox message", "message_id", msg.ID, "error", err)
		}
		return
	}

	// The broker acked; a crash before this update means a duplicate
	// publish on restart, which downstream consumers absorb.
	if err := r.store.MarkProcessed(ctx, msg.ID); err != nil {
		slog.Error("Failed to mark outbox message PROCESSED", "message_id", msg.ID, "error", err)
		return
	}
	metrics.OutboxPublished.WithLabelValues(r.service, msg.Topic).Inc()
}

// backoff returns base * 2^(retryCount-1) capped at BackoffMax
func (r *Relay) backoff(retryCount int) time.Duration {
	d := r.cfg.BackoffBase
	for i := 1; i < retryCount; i++ {
		d *= 2
		if d >= r.cfg.BackoffMax {
			return r.cfg.BackoffMax
		}
	}
	if d > r.cfg.BackoffMax {
		return r.cfg.BackoffMax
	}
	return d
}
