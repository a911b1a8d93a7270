// Package service records open and click events from the tracking endpoint
// and reports per-variant engagement to split-test decisions.
package service

import (
	"context"
	"errors"
	"log/slog"

	"campaign/internal/engagement/models"
	smodels "campaign/internal/splittest/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/requestcontext"
)

type Store interface {
	Record(ctx context.Context, e models.Event) (bool, error)
	CountDistinct(ctx context.Context, testID id.SplitTestID, variant smodels.Variant, kinds []models.Kind) (int, error)
}

type Reporter struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Reporter)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) { r.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(r *Reporter) { r.metrics = m }
}

func New(st Store, opts ...Option) (*Reporter, error) {
	if st == nil {
		return nil, errors.New("engagement store is required")
	}
	r := &Reporter{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Record stores one event. Repeated events are accepted and ignored.
func (r *Reporter) Record(ctx context.Context, testID id.SplitTestID, variant smodels.Variant, recipientID id.RecipientID, kind models.Kind) error {
	if testID.IsNil() || recipientID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "test and recipient are required")
	}
	fresh, err := r.store.Record(ctx, models.Event{
		TestID:      testID,
		Variant:     variant,
		RecipientID: recipientID,
		Kind:        kind,
		OccurredAt:  requestcontext.Now(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to record engagement")
	}
	r.metrics.observe(string(kind), fresh)
	if fresh {
		r.logger.DebugContext(ctx, "engagement recorded",
			"test_id", testID,
			"variant", variant,
			"kind", kind,
		)
	}
	return nil
}

// Engaged counts distinct recipients of variant that engaged per metric.
func (r *Reporter) Engaged(ctx context.Context, testID id.SplitTestID, variant smodels.Variant, metric smodels.Metric) (int, error) {
	n, err := r.store.CountDistinct(ctx, testID, variant, models.KindsFor(metric))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to count engagement")
	}
	return n, nil
}
