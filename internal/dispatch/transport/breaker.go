package transport

import (
	"context"
	"errors"
	"log/slog"

	"campaign/internal/dispatch/models"
	"campaign/pkg/platform/circuit"
)

// ErrCircuitOpen is the per-recipient error while the downstream is
// considered unhealthy.
var ErrCircuitOpen = errors.New("transport circuit open")

// Breaker short-circuits sends to failure after consecutive transport
// errors, so a dead broker costs one fast failure per recipient instead of a
// timeout each. Undelivered results without an error do not trip it.
type Breaker struct {
	next    Transport
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewBreaker(next Transport, breaker *circuit.Breaker, logger *slog.Logger) *Breaker {
	return &Breaker{next: next, breaker: breaker, logger: logger}
}

func (b *Breaker) Send(ctx context.Context, msg models.Message) (bool, error) {
	if !b.breaker.Allow() {
		return false, ErrCircuitOpen
	}
	delivered, err := b.next.Send(ctx, msg)
	if err != nil {
		if _, change := b.breaker.RecordFailure(); change.Opened {
			b.logger.WarnContext(ctx, "mail transport circuit opened",
				"breaker", b.breaker.Name(),
				"error", err,
			)
		}
		return false, err
	}
	if _, change := b.breaker.RecordSuccess(); change.Closed {
		b.logger.InfoContext(ctx, "mail transport circuit closed", "breaker", b.breaker.Name())
	}
	return delivered, nil
}
