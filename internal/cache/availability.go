package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config configures the event availability cache
type Config struct {
	Enabled  bool
	Addr     string
	Password string
	TTL      time.Duration
}

// AvailabilityCache is a read-through cache of remaining capacity per event,
// used by the listing endpoint. Reservation commits invalidate entries so
// readers never see stale availability for long.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(cfg Config) (*AvailabilityCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to cache: %w", err)
	}

	return &AvailabilityCache{client: rdb, ttl: cfg.TTL}, nil
}

// newWithClient is used by tests to inject a mock client
func newWithClient(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func availabilityKey(eventID int64) string {
	return fmt.Sprintf("events:availability:%d", eventID)
}

// Get returns the cached availability for the event, or found=false on a miss
func (c *AvailabilityCache) Get(ctx context.Context, eventID int64) (int, bool, error) {
	val, err := c.client.Get(ctx, availabilityKey(eventID)).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("cache get failed: %w", err)
	}

	available, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt cache value for event %d: %w", eventID, err)
	}
	return available, true, nil
}

// Set stores the availability with the configured TTL
func (c *AvailabilityCache) Set(ctx context.Context, eventID int64, available int) error {
	return c.client.Set(ctx, availabilityKey(eventID), strconv.Itoa(available), c.ttl).Err()
}

// Invalidate drops the entry after a reservation commit
func (c *AvailabilityCache) Invalidate(ctx context.Context, eventID int64) error {
	return c.client.Del(ctx, availabilityKey(eventID)).Err()
}

func (c *AvailabilityCache) Close() error {
	return c.client.Close()
}
