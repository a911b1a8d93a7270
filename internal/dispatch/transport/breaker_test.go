package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign/internal/dispatch/models"
	"campaign/internal/platform/logger"
	"campaign/pkg/platform/circuit"
)

type flakyTransport struct {
	err   error
	calls int
}

func (f *flakyTransport) Send(context.Context, models.Message) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next := &flakyTransport{err: errors.New("broker unreachable")}
	cb := circuit.New("mail",
		circuit.WithFailureThreshold(2),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	b := NewBreaker(next, cb, logger.Discard())
	ctx := context.Background()

	for range 2 {
		ok, err := b.Send(ctx, models.Message{})
		assert.False(t, ok)
		assert.EqualError(t, err, "broker unreachable")
	}
	require.True(t, cb.IsOpen())

	ok, err := b.Send(ctx, models.Message{})
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, next.calls, "open breaker does not call through")

	now = now.Add(2 * time.Minute)
	next.err = nil
	ok, err = b.Send(ctx, models.Message{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, cb.IsOpen())
}

func TestLogTransportDelivers(t *testing.T) {
	ok, err := NewLog(logger.Discard()).Send(context.Background(), models.Message{Subject: "hi"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewKafkaRequiresBrokersAndTopic(t *testing.T) {
	_, err := NewKafka(context.Background(), KafkaConfig{Topic: "mail"}, logger.Discard())
	assert.ErrorContains(t, err, "brokers")
	_, err = NewKafka(context.Background(), KafkaConfig{Brokers: []string{"localhost:9092"}}, logger.Discard())
	assert.ErrorContains(t, err, "topic")
}
