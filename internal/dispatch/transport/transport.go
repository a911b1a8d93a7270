// Package transport hands individual messages to the mail subsystem.
package transport

import (
	"context"
	"log/slog"

	"campaign/internal/dispatch/models"
)

// Transport delivers one message. delivered=false or a non-nil error is a
// per-recipient failure.
type Transport interface {
	Send(ctx context.Context, msg models.Message) (delivered bool, err error)
}

// Log writes messages to the logger and reports them delivered. Used when no
// broker is configured.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (t *Log) Send(ctx context.Context, msg models.Message) (bool, error) {
	t.logger.InfoContext(ctx, "mail delivered to log transport",
		"job_id", msg.JobID,
		"recipient_id", msg.RecipientID,
		"subject", msg.Subject,
		"variant", msg.Variant,
	)
	return true, nil
}
