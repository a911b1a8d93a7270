// Package service runs A/B split tests on top of the dispatcher: two sample
// jobs, a decision on measured engagement, then one remainder job.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dmodels "campaign/internal/dispatch/models"
	rmodels "campaign/internal/recipient/models"
	"campaign/internal/splittest/metrics"
	"campaign/internal/splittest/models"
	"campaign/internal/splittest/store"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/audit"
	txcontext "campaign/pkg/platform/tx"
	"campaign/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, t *models.SplitTest) error
	FindByID(ctx context.Context, testID id.SplitTestID) (*models.SplitTest, error)
	MarkSampling(ctx context.Context, testID id.SplitTestID, jobA, jobB id.JobID, now time.Time) error
	MarkDecided(ctx context.Context, testID id.SplitTestID, winner models.Variant, remainder id.JobID, now time.Time) error
	MarkCompleted(ctx context.Context, testID id.SplitTestID, now time.Time) error
	ListByOutcome(ctx context.Context, outcome models.Outcome, limit int) ([]models.SplitTest, error)
}

type RecipientLister interface {
	ListEligible(ctx context.Context, segment string) ([]rmodels.Recipient, error)
}

type Dispatcher interface {
	Submit(ctx context.Context, recipients []id.RecipientID, chunkSize int, payload dmodels.Payload) (id.JobID, error)
	SubmitAs(ctx context.Context, jobID id.JobID, recipients []id.RecipientID, chunkSize int, payload dmodels.Payload) error
	Get(ctx context.Context, jobID id.JobID) (*dmodels.Job, error)
}

// EngagementReporter counts distinct recipients of a variant that engaged
// in the way metric measures.
type EngagementReporter interface {
	Engaged(ctx context.Context, testID id.SplitTestID, variant models.Variant, metric models.Metric) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	recipients     RecipientLister
	dispatcher     Dispatcher
	reporter       EngagementReporter
	tx             txcontext.Runner
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

// WithTxRunner makes test creation and the decide transition atomic with
// the jobs they submit when both stores share a database.
func WithTxRunner(r txcontext.Runner) Option {
	return func(s *Service) { s.tx = r }
}

func New(st Store, recipients RecipientLister, dispatcher Dispatcher, reporter EngagementReporter, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("split test store is required")
	}
	if recipients == nil {
		return nil, errors.New("recipient lister is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if reporter == nil {
		return nil, errors.New("engagement reporter is required")
	}
	s := &Service{
		store:      st,
		recipients: recipients,
		dispatcher: dispatcher,
		reporter:   reporter,
		tx:         txcontext.NopRunner{},
		logger:     slog.Default(),
		tracer:     otel.Tracer("campaign/internal/splittest"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateTest samples the eligible recipients, submits one sample job per
// variant and leaves the test in sampling.
func (s *Service) CreateTest(ctx context.Context, req models.CreateRequest) (*models.SplitTest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	eligible, err := s.recipients.ListEligible(ctx, req.Segment)
	if err != nil {
		return nil, coded(err, "failed to list eligible recipients")
	}
	ids := make([]id.RecipientID, len(eligible))
	for i, r := range eligible {
		ids[i] = r.ID
	}
	size := models.SampleSize(len(ids), req.SampleFraction)
	if size == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "not enough eligible recipients for a sample")
	}

	now := requestcontext.Now(ctx)
	t := &models.SplitTest{
		ID:             id.NewSplitTestID(),
		VariantA:       req.VariantA,
		VariantB:       req.VariantB,
		SampleFraction: req.SampleFraction,
		Metric:         req.Metric,
		Segment:        req.Segment,
		ChunkSize:      req.ChunkSize,
		SampleSize:     size,
		Outcome:        models.OutcomePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	sampleA, sampleB, rest := models.Split(t.ID, ids, size)
	t.RemainderRecipients = rest

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Create(ctx, t); err != nil {
			return dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to persist split test")
		}
		jobA, err := s.dispatcher.Submit(ctx, sampleA, t.ChunkSize, t.Payload(models.VariantA))
		if err != nil {
			return coded(err, "failed to submit sample job")
		}
		jobB, err := s.dispatcher.Submit(ctx, sampleB, t.ChunkSize, t.Payload(models.VariantB))
		if err != nil {
			return coded(err, "failed to submit sample job")
		}
		if err := s.store.MarkSampling(ctx, t.ID, jobA, jobB, now); err != nil {
			return translate(err, "failed to start sampling")
		}
		t.SampleJobA, t.SampleJobB = jobA, jobB
		t.Outcome = models.OutcomeSampling
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSampleSize(size)
	s.logAudit(ctx, audit.EventSplitTestCreated,
		"test_id", t.ID,
		"sample_size", size,
		"remainder", len(rest),
		"metric", string(t.Metric),
	)
	return t, nil
}

// Decide scores both variants once their sample jobs completed and submits
// exactly one remainder job with the winning payload. Ties go to A.
func (s *Service) Decide(ctx context.Context, testID id.SplitTestID) (*models.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "splittest.decide", trace.WithAttributes(
		attribute.String("split_test.id", testID.String()),
	))
	defer span.End()

	t, err := s.load(ctx, testID)
	if err != nil {
		return nil, err
	}
	switch t.Outcome {
	case models.OutcomeDecided, models.OutcomeCompleted:
		return nil, dErrors.New(dErrors.CodeAlreadyDecided, "split test already decided")
	case models.OutcomePending:
		return nil, dErrors.New(dErrors.CodeNotReady, "sample jobs not submitted")
	}
	for _, jobID := range []id.JobID{t.SampleJobA, t.SampleJobB} {
		if err := s.sampleCompleted(ctx, jobID); err != nil {
			return nil, err
		}
	}

	scoreA, err := s.score(ctx, t, models.VariantA)
	if err != nil {
		span.SetStatus(codes.Error, "score variant")
		return nil, err
	}
	scoreB, err := s.score(ctx, t, models.VariantB)
	if err != nil {
		span.SetStatus(codes.Error, "score variant")
		return nil, err
	}
	winner := models.PickWinner(scoreA, scoreB)

	// The decision is recorded before the remainder job exists, so a caller
	// that loses the race never creates a job the scheduler could advance.
	remainder := id.NewJobID()
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.MarkDecided(ctx, testID, winner, remainder, requestcontext.Now(ctx)); err != nil {
			return err
		}
		return s.submitRemainder(ctx, t, winner, remainder)
	})
	if errors.Is(err, store.ErrConflict) {
		s.metrics.IncrementLostDecision()
		return nil, dErrors.New(dErrors.CodeAlreadyDecided, "split test already decided")
	}
	if err != nil {
		span.SetStatus(codes.Error, "record decision")
		return nil, translate(err, "failed to record decision")
	}

	span.SetAttributes(attribute.String("split_test.winner", string(winner)))
	s.metrics.IncrementDecision(string(winner))
	s.logAudit(ctx, audit.EventSplitTestDecided,
		"test_id", testID,
		"decision", string(winner),
		"score_a", scoreA.Rate,
		"score_b", scoreB.Rate,
		"remainder_job", remainder,
	)
	return &models.Decision{
		TestID:       testID,
		Winner:       winner,
		ScoreA:       scoreA,
		ScoreB:       scoreB,
		RemainderJob: remainder,
	}, nil
}

// Reconcile moves a decided test to completed once its remainder job is
// terminal. Tests in any other outcome are returned unchanged.
func (s *Service) Reconcile(ctx context.Context, testID id.SplitTestID) (*models.SplitTest, error) {
	t, err := s.load(ctx, testID)
	if err != nil {
		return nil, err
	}
	if t.Outcome != models.OutcomeDecided || t.RemainderJob == nil {
		return t, nil
	}
	job, err := s.dispatcher.Get(ctx, *t.RemainderJob)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		// Decided without a transaction and the submit after it failed.
		if err := s.submitRemainder(ctx, t, t.Winner, *t.RemainderJob); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "resubmitted remainder job", "test_id", testID, "job_id", *t.RemainderJob)
		return t, nil
	}
	if err != nil {
		return nil, coded(err, "failed to load remainder job")
	}
	if !job.Status.IsTerminal() {
		return t, nil
	}
	now := requestcontext.Now(ctx)
	err = s.store.MarkCompleted(ctx, testID, now)
	if errors.Is(err, store.ErrConflict) {
		return s.load(ctx, testID)
	}
	if err != nil {
		return nil, translate(err, "failed to complete split test")
	}
	t.Outcome = models.OutcomeCompleted
	t.UpdatedAt = now
	s.metrics.IncrementCompleted()
	s.logAudit(ctx, audit.EventSplitTestCompleted,
		"test_id", testID,
		"decision", string(job.Status),
		"remainder_job", job.ID,
	)
	return t, nil
}

// Get returns the test after reconciling it.
func (s *Service) Get(ctx context.Context, testID id.SplitTestID) (*models.SplitTest, error) {
	return s.Reconcile(ctx, testID)
}

// ReconcileDecided reconciles up to limit decided tests and returns how many
// completed. Failures are logged and do not stop the batch.
func (s *Service) ReconcileDecided(ctx context.Context, limit int) (int, error) {
	tests, err := s.store.ListByOutcome(ctx, models.OutcomeDecided, limit)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to list decided split tests")
	}
	completed := 0
	for _, t := range tests {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}
		got, err := s.Reconcile(ctx, t.ID)
		if err != nil {
			s.logger.WarnContext(ctx, "split test reconcile failed", "test_id", t.ID, "error", err)
			continue
		}
		if got.Outcome == models.OutcomeCompleted {
			completed++
		}
	}
	return completed, nil
}

func (s *Service) sampleCompleted(ctx context.Context, jobID id.JobID) error {
	job, err := s.dispatcher.Get(ctx, jobID)
	if err != nil {
		return coded(err, "failed to load sample job")
	}
	if job.Status != dmodels.StatusCompleted {
		return dErrors.New(dErrors.CodeNotReady, "sample job "+jobID.String()+" is "+string(job.Status))
	}
	return nil
}

func (s *Service) score(ctx context.Context, t *models.SplitTest, v models.Variant) (models.Score, error) {
	engaged, err := s.reporter.Engaged(ctx, t.ID, v, t.Metric)
	if err != nil {
		return models.Score{}, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to read engagement")
	}
	score := models.Score{Variant: v, Engaged: engaged}
	if t.SampleSize > 0 {
		score.Rate = float64(engaged) / float64(t.SampleSize)
	}
	return score, nil
}

// submitRemainder creates the remainder job under the id recorded with the
// decision. An existing job with that id means an earlier attempt succeeded.
func (s *Service) submitRemainder(ctx context.Context, t *models.SplitTest, winner models.Variant, jobID id.JobID) error {
	err := s.dispatcher.SubmitAs(ctx, jobID, t.RemainderRecipients, t.ChunkSize, t.Payload(winner))
	if err != nil && !dErrors.HasCode(err, dErrors.CodeConflict) {
		return coded(err, "failed to submit remainder job")
	}
	return nil
}

func (s *Service) load(ctx context.Context, testID id.SplitTestID) (*models.SplitTest, error) {
	t, err := s.store.FindByID(ctx, testID)
	if err != nil {
		return nil, translate(err, "failed to load split test")
	}
	return t, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attrs ...any) {
	audit.LogAudit(ctx, s.logger, s.auditPublisher, event, attrs...)
}

func translate(err error, msg string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "split test not found")
	case errors.Is(err, store.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "split test was modified concurrently")
	}
	return coded(err, msg)
}

// coded keeps an existing domain code and wraps anything else as a store
// failure.
func coded(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeStoreFailure, msg)
}
