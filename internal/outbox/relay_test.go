package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastticket/internal/models"
)

type fakeStore struct {
	messages map[int64]*models.OutboxMessage
	nextID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{messages: make(map[int64]*models.OutboxMessage)}
}

func (s *fakeStore) add(topic string, payload string) int64 {
	s.nextID++
	s.messages[s.nextID] = &models.OutboxMessage{
		ID:            s.nextID,
		Topic:         topic,
		Payload:       json.RawMessage(payload),
		Status:        models.OutboxStatusPending,
		NextAttemptAt: time.Now().Add(-time.Second),
		CreatedAt:     time.Now().Add(time.Duration(s.nextID) * time.Millisecond),
	}
	return s.nextID
}

func (s *fakeStore) DrainBatch(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	now := time.Now()
	var due []models.OutboxMessage
	for _, msg := range s.messages {
		if msg.Status == models.OutboxStatusPending && !msg.NextAttemptAt.After(now) {
			due = append(due, *msg)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *fakeStore) MarkProcessed(ctx context.Context, id int64) error {
	s.messages[id].Status = models.OutboxStatusProcessed
	return nil
}

func (s *fakeStore) Reschedule(ctx context.Context, id int64, retryCount int, nextAttempt time.Time) error {
	s.messages[id].RetryCount = retryCount
	s.messages[id].NextAttemptAt = nextAttempt
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id int64, retryCount int) error {
	s.messages[id].Status = models.OutboxStatusFailed
	s.messages[id].RetryCount = retryCount
	return nil
}

type fakePublisher struct {
	published []string
	failOn    map[string]error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{failOn: make(map[string]error)}
}

func (p *fakePublisher) Publish(subject string, payload []byte) error {
	if err, ok := p.failOn[string(payload)]; ok {
		return err
	}
	p.published = append(p.published, string(payload))
	return nil
}

func testConfig() Config {
	return Config{
		RelayInterval: time.Second,
		BatchSize:     10,
		MaxRetries:    5,
		BackoffBase:   100 * time.Millisecond,
		BackoffMax:    time.Second,
	}
}

func TestRelay_PublishSuccessMarksProcessed(t *testing.T) {
	store := newFakeStore()
	publisher := newFakePublisher()
	relay := NewRelay(store, publisher, testConfig(), "test")

	id := store.add("booking-events", `{"booking_id":1}`)

	relay.RunCycle(context.Background())

	assert.Equal(t, models.OutboxStatusProcessed, store.messages[id].Status)
	assert.Equal(t, []string{`{"booking_id":1}`}, publisher.published)
}

func TestRelay_PublishFailureLeavesPendingWithRetryCount(t *testing.T) {
	store := newFakeStore()
	publisher := newFakePublisher()
	publisher.failOn[`{"booking_id":1}`] = errors.New("broker unreachable")
	relay := NewRelay(store, publisher, testConfig(), "test")

	id := store.add("booking-events", `{"booking_id":1}`)

	relay.RunCycle(context.Background())

	msg := store.messages[id]
	assert.Equal(t, models.OutboxStatusPending, msg.Status)
	assert.Equal(t, 1, msg.RetryCount)
	assert.True(t, msg.NextAttemptAt.After(time.Now()), "next attempt should be delayed")
	assert.Empty(t, publisher.published)

	// Broker recovers: the message is picked up again once due and
	// processed exactly once
	delete(publisher.failOn, `{"booking_id":1}`)
	msg.NextAttemptAt = time.Now().Add(-time.Second)

	relay.RunCycle(context.Background())
	relay.RunCycle(context.Background())

	assert.Equal(t, models.OutboxStatusProcessed, msg.Status)
	assert.Len(t, publisher.published, 1)
}

func TestRelay_OneFailingMessageDoesNotBlockBatch(t *testing.T) {
	store := newFakeStore()
	publisher := newFakePublisher()
	publisher.failOn[`{"booking_id":2}`] = errors.New("publish timeout")
	relay := NewRelay(store, publisher, testConfig(), "test")

	first := store.add("booking-events", `{"booking_id":1}`)
	stuck := store.add("booking-events", `{"booking_id":2}`)
	last := store.add("booking-events", `{"booking_id":3}`)

	relay.RunCycle(context.Background())

	assert.Equal(t, models.OutboxStatusProcessed, store.messages[first].Status)
	assert.Equal(t, models.OutboxStatusPending, store.messages[stuck].Status)
	assert.Equal(t, models.OutboxStatusProcessed, store.messages[last].Status)
	assert.Equal(t, []string{`{"booking_id":1}`, `{"booking_id":3}`}, publisher.published)
}

func TestRelay_RetryCeilingParksMessageAsFailed(t *testing.T) {
	store := newFakeStore()
	publisher := newFakePublisher()
	publisher.failOn[`{"booking_id":1}`] = errors.New("broker unreachable")

	cfg := testConfig()
	cfg.MaxRetries = 3
	relay := NewRelay(store, publisher, cfg, "test")

	id := store.add("booking-events", `{"booking_id":1}`)
	msg := store.messages[id]

	for i := 0; i < 3; i++ {
		msg.NextAttemptAt = time.Now().Add(-time.Second)
		relay.RunCycle(context.Background())
	}

	assert.Equal(t, models.OutboxStatusFailed, msg.Status)
	assert.Equal(t, 3, msg.RetryCount, "parked row should record the final attempt count")

	// FAILED is terminal: further cycles ignore the row
	relay.RunCycle(context.Background())
	assert.Empty(t, publisher.published)
}

func TestRelay_DrainIsOldestFirst(t *testing.T) {
	store := newFakeStore()
	publisher := newFakePublisher()
	relay := NewRelay(store, publisher, testConfig(), "test")

	store.add("booking-events", `{"booking_id":1}`)
	store.add("booking-events", `{"booking_id":2}`)
	store.add("booking-events", `{"booking_id":3}`)

	relay.RunCycle(context.Background())

	require.Len(t, publisher.published, 3)
	assert.Equal(t, `{"booking_id":1}`, publisher.published[0])
	assert.Equal(t, `{"booking_id":3}`, publisher.published[2])
}

func TestRelay_BackoffIsBoundedExponential(t *testing.T) {
	relay := NewRelay(newFakeStore(), newFakePublisher(), testConfig(), "test")

	assert.Equal(t, 100*time.Millisecond, relay.backoff(1))
	assert.Equal(t, 200*time.Millisecond, relay.backoff(2))
	assert.Equal(t, 400*time.Millisecond, relay.backoff(3))
	assert.Equal(t, 800*time.Millisecond, relay.backoff(4))
	assert.Equal(t, time.Second, relay.backoff(5))
	assert.Equal(t, time.Second, relay.backoff(20))
}

func TestRelay_StartStop(t *testing.T) {
	store := newFakeStore()
	publisher := newFakePublisher()

	cfg := testConfig()
	cfg.RelayInterval = 10 * time.Millisecond
	relay := NewRelay(store, publisher, cfg, "test")

	store.add("booking-events", `{"booking_id":1}`)

	relay.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	relay.Stop()

	assert.Len(t, publisher.published, 1)
}

func TestRelay_StopWithoutStart(t *testing.T) {
	relay := NewRelay(newFakeStore(), newFakePublisher(), testConfig(), "test")

	done := make(chan struct{})
	go func() {
		relay.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without a running relay")
	}
}

func TestRelay_StopTwice(t *testing.T) {
	relay := NewRelay(newFakeStore(), newFakePublisher(), testConfig(), "test")

	relay.Start(context.Background())
	relay.Stop()

	assert.NotPanics(t, func() { relay.Stop() })
}
