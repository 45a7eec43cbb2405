package consumers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"fastticket/internal/models"
)

type fakeReserver struct {
	calls     []int64
	results   map[int64]models.ReservationResultEvent
	processed map[int64]bool
	err       error
}

func newFakeReserver() *fakeReserver {
	return &fakeReserver{
		results:   make(map[int64]models.ReservationResultEvent),
		processed: make(map[int64]bool),
	}
}

func (f *fakeReserver) Reserve(ctx context.Context, bookingID, eventID int64) (models.ReservationResultEvent, bool, error) {
	if f.err != nil {
		return models.ReservationResultEvent{}, false, f.err
	}
	duplicate := f.processed[bookingID]
	if !duplicate {
		f.calls = append(f.calls, bookingID)
		f.processed[bookingID] = true
	}
	return f.results[bookingID], duplicate, nil
}

type fakeInvalidator struct {
	invalidated []int64
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, eventID int64) error {
	f.invalidated = append(f.invalidated, eventID)
	return nil
}

func TestReservationConsumer_ConfirmedAcksAndInvalidatesCache(t *testing.T) {
	reserver := newFakeReserver()
	reserver.results[1] = models.ReservationResultEvent{
		BookingID: 1, Status: models.BookingStatusConfirmed, Reason: models.ReasonOK,
	}
	invalidator := &fakeInvalidator{}
	consumer := NewReservationConsumer(nil, reserver, invalidator)

	ack := consumer.process(context.Background(), []byte(`{"event_id":7,"booking_id":1,"user_id":3,"status":"booked"}`))

	assert.True(t, ack)
	assert.Equal(t, []int64{1}, reserver.calls)
	assert.Equal(t, []int64{7}, invalidator.invalidated)
}

func TestReservationConsumer_RejectedDoesNotInvalidateCache(t *testing.T) {
	reserver := newFakeReserver()
	reserver.results[2] = models.ReservationResultEvent{
		BookingID: 2, Status: models.BookingStatusRejected, Reason: models.ReasonSoldOut,
	}
	invalidator := &fakeInvalidator{}
	consumer := NewReservationConsumer(nil, reserver, invalidator)

	ack := consumer.process(context.Background(), []byte(`{"event_id":7,"booking_id":2,"user_id":3,"status":"booked"}`))

	assert.True(t, ack)
	assert.Empty(t, invalidator.invalidated)
}

func TestReservationConsumer_RedeliveryIsAbsorbed(t *testing.T) {
	reserver := newFakeReserver()
	reserver.results[1] = models.ReservationResultEvent{
		BookingID: 1, Status: models.BookingStatusConfirmed, Reason: models.ReasonOK,
	}
	consumer := NewReservationConsumer(nil, reserver, nil)

	payload := []byte(`{"event_id":7,"booking_id":1,"user_id":3,"status":"booked"}`)

	assert.True(t, consumer.process(context.Background(), payload))
	assert.True(t, consumer.process(context.Background(), payload))

	// A single effective application despite two deliveries
	assert.Equal(t, []int64{1}, reserver.calls)
}

func TestReservationConsumer_TransientErrorIsNotAcked(t *testing.T) {
	reserver := newFakeReserver()
	reserver.err = errors.New("database unavailable")
	consumer := NewReservationConsumer(nil, reserver, nil)

	ack := consumer.process(context.Background(), []byte(`{"event_id":7,"booking_id":1,"user_id":3,"status":"booked"}`))

	assert.False(t, ack, "transient failures must leave the message for redelivery")
}

func TestReservationConsumer_MalformedPayloadIsAcked(t *testing.T) {
	reserver := newFakeReserver()
	consumer := NewReservationConsumer(nil, reserver, nil)

	ack := consumer.process(context.Background(), []byte(`not-json`))

	assert.True(t, ack, "redelivery cannot fix a malformed payload")
	assert.Empty(t, reserver.calls)
}

func TestReservationConsumer_UnexpectedStatusIsIgnored(t *testing.T) {
	reserver := newFakeReserver()
	consumer := NewReservationConsumer(nil, reserver, nil)

	ack := consumer.process(context.Background(), []byte(`{"event_id":7,"booking_id":1,"user_id":3,"status":"cancelled"}`))

	assert.True(t, ack)
	assert.Empty(t, reserver.calls)
}
