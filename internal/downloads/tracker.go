// Package downloads counts document downloads.
package downloads

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"campaign/internal/cache"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/sentinel"
)

// GroupCatalog is the cache group holding download-ordered aggregates.
const GroupCatalog = "catalog"

// Counter increments a document's download count atomically in the backing
// store and returns the new value.
type Counter interface {
	IncrementDownloads(ctx context.Context, docID id.DocumentID) (int64, error)
}

// Tracker is the only writer of download counts.
type Tracker struct {
	counter Counter
	groups  cache.Invalidator
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

func NewTracker(counter Counter, groups cache.Invalidator, opts ...Option) *Tracker {
	t := &Tracker{counter: counter, groups: groups, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RecordDownload increments the counter and invalidates the catalog group so
// the popularity ranking reflects the new count.
func (t *Tracker) RecordDownload(ctx context.Context, docID id.DocumentID) (int64, error) {
	start := time.Now()
	count, err := t.counter.IncrementDownloads(ctx, docID)
	if err != nil {
		t.metrics.failed("increment")
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return 0, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to record download")
	}
	if err := t.groups.InvalidateGroup(ctx, GroupCatalog); err != nil {
		t.metrics.failed("invalidate")
		t.logger.WarnContext(ctx, "download counted but cache invalidation failed",
			"document_id", docID,
			"count", count,
			"error", err,
		)
		return count, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to invalidate catalog cache")
	}
	t.metrics.recorded(start)
	return count, nil
}
