package cache

import (
	"context"
	"log/slog"
	"time"

	"campaign/internal/cache/provider"
)

// Janitor periodically purges expired rows from providers that keep them.
// It only reclaims space; reads already ignore expired entries.
type Janitor struct {
	purger   provider.Purger
	interval time.Duration
	logger   *slog.Logger
	metrics  *Metrics
}

func NewJanitor(p provider.Purger, interval time.Duration, logger *slog.Logger, metrics *Metrics) *Janitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Janitor{purger: p, interval: interval, logger: logger, metrics: metrics}
}

// Run purges every interval until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

func (j *Janitor) RunOnce(ctx context.Context) {
	n, err := j.purger.Purge(ctx)
	if err != nil {
		j.logger.WarnContext(ctx, "cache purge failed", "error", err)
		return
	}
	j.metrics.purged(n)
	if n > 0 {
		j.logger.DebugContext(ctx, "cache purge", "removed", n)
	}
}
