package amqp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earntracker/internal/core"
	"earntracker/internal/log"
	"earntracker/internal/period"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"closed sentinel", fmt.Errorf("consume: %w", amqp091.ErrClosed), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"eof", io.EOF, true},
		{"forced close", &amqp091.Error{Code: amqp091.ConnectionForced}, true},
		{"handler error", errors.New("invalid period"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isConnectionError(tt.err))
		})
	}
}

func TestPeriodChangedMessageRoundTrip(t *testing.T) {
	msg := NewPeriodChangedMessage(7, period.Period{Year: 2025, Quarter: 3}, "income created")
	require.NotEmpty(t, msg.ID)

	body, err := msg.ToJSON()
	require.NoError(t, err)

	got, err := PeriodChangedMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, period.Period{Year: 2025, Quarter: 3}, got.Period())
}

func TestPeriodChangedMessageFromJSONRejectsBadInput(t *testing.T) {
	_, err := PeriodChangedMessageFromJSON([]byte(`not json`))
	assert.Error(t, err)

	_, err = PeriodChangedMessageFromJSON([]byte(`{"id":"x","user_id":1,"year":2025,"quarter":7}`))
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)

	_, err = PeriodChangedMessageFromJSON([]byte(`{"id":"x","year":2025,"quarter":1}`))
	assert.ErrorContains(t, err, "missing user id")
}

type ackRecorder struct {
	acked, nacked, requeued bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func testClient() *Client {
	return &Client{queueName: "q", logger: log.New(log.Config{Output: io.Discard})}
}

func TestHandleDelivery(t *testing.T) {
	body, err := NewPeriodChangedMessage(1, period.Period{Year: 2025, Quarter: 1}, "").ToJSON()
	require.NoError(t, err)

	t.Run("success acks", func(t *testing.T) {
		rec := &ackRecorder{}
		var seen *PeriodChangedMessage
		testClient().handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: rec, Body: body},
			func(_ context.Context, m *PeriodChangedMessage) error { seen = m; return nil })
		assert.True(t, rec.acked)
		require.NotNil(t, seen)
		assert.Equal(t, int64(1), seen.UserID)
	})

	t.Run("handler error requeues", func(t *testing.T) {
		rec := &ackRecorder{}
		testClient().handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: rec, Body: body},
			func(context.Context, *PeriodChangedMessage) error { return errors.New("db busy") })
		assert.True(t, rec.nacked)
		assert.True(t, rec.requeued)
	})

	t.Run("malformed body is dropped", func(t *testing.T) {
		rec := &ackRecorder{}
		called := false
		testClient().handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: rec, Body: []byte("{")},
			func(context.Context, *PeriodChangedMessage) error { called = true; return nil })
		assert.False(t, called)
		assert.True(t, rec.nacked)
		assert.False(t, rec.requeued)
	})
}
