// Package service runs batched sends: jobs are submitted with an ordered
// recipient list and advanced one chunk per call by an external trigger.
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

	"campaign/internal/dispatch/metrics"
	"campaign/internal/dispatch/models"
	"campaign/internal/dispatch/store"
	rmodels "campaign/internal/recipient/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/audit"
	"campaign/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, job *models.Job) error
	FindByID(ctx context.Context, jobID id.JobID) (*models.Job, error)
	SaveProgress(ctx context.Context, job *models.Job, prevCursor int, prevStatus models.Status, deliveries []models.Delivery) error
	RequestCancel(ctx context.Context, jobID id.JobID, now time.Time) error
	ListActive(ctx context.Context, limit int) ([]models.Job, error)
	ListDeliveries(ctx context.Context, jobID id.JobID) ([]models.Delivery, error)
}

// RecipientReader returns the current state of recipients. Implementations
// must not cache: an opt-out recorded between chunks has to be honored.
type RecipientReader interface {
	Eligibility(ctx context.Context, ids []id.RecipientID) (map[id.RecipientID]rmodels.Recipient, error)
}

type Transport interface {
	Send(ctx context.Context, msg models.Message) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	recipients     RecipientReader
	transport      Transport
	locks          *jobLocks
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

func New(st Store, recipients RecipientReader, transport Transport, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("job store is required")
	}
	if recipients == nil {
		return nil, errors.New("recipient reader is required")
	}
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	s := &Service{
		store:      st,
		recipients: recipients,
		transport:  transport,
		locks:      newJobLocks(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("campaign/internal/dispatch"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit persists a pending job. Duplicate recipient ids are dropped, keeping
// the first occurrence.
func (s *Service) Submit(ctx context.Context, recipients []id.RecipientID, chunkSize int, payload models.Payload) (id.JobID, error) {
	jobID := id.NewJobID()
	if err := s.SubmitAs(ctx, jobID, recipients, chunkSize, payload); err != nil {
		return id.JobID{}, err
	}
	return jobID, nil
}

// SubmitAs is Submit under a caller-chosen id. A second submission with the
// same id is a Conflict and leaves the first job untouched.
func (s *Service) SubmitAs(ctx context.Context, jobID id.JobID, recipients []id.RecipientID, chunkSize int, payload models.Payload) error {
	if jobID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "job id is required")
	}
	job, err := models.NewJob(jobID, recipients, chunkSize, payload, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if err := s.store.Create(ctx, job); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "job already exists")
		}
		return dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to persist job")
	}
	s.logAudit(ctx, audit.EventJobSubmitted,
		"job_id", job.ID,
		"total", job.Total,
		"chunk_size", job.ChunkSize,
		"test_id", job.Payload.TestID,
	)
	return nil
}

func (s *Service) Get(ctx context.Context, jobID id.JobID) (*models.Job, error) {
	job, err := s.store.FindByID(ctx, jobID)
	if err != nil {
		return nil, translate(err, "failed to load job")
	}
	return job, nil
}

// Cancel flags the job; the next Advance moves it to cancelled without
// sending. A terminal job cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, jobID id.JobID) error {
	if err := s.store.RequestCancel(ctx, jobID, requestcontext.Now(ctx)); err != nil {
		return translate(err, "failed to cancel job")
	}
	s.logAudit(ctx, audit.EventJobCancelled, "job_id", jobID, "decision", "requested")
	return nil
}

// ListActive returns up to limit pending or running jobs, least recently
// advanced first.
func (s *Service) ListActive(ctx context.Context, limit int) ([]models.Job, error) {
	jobs, err := s.store.ListActive(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to list active jobs")
	}
	return jobs, nil
}

func (s *Service) Deliveries(ctx context.Context, jobID id.JobID) ([]models.Delivery, error) {
	out, err := s.store.ListDeliveries(ctx, jobID)
	if err != nil {
		return nil, translate(err, "failed to list deliveries")
	}
	return out, nil
}

// Advance processes the next chunk of jobID and persists the new cursor and
// counters before returning. A terminal job returns its final counts with
// Done set and no side effects.
func (s *Service) Advance(ctx context.Context, jobID id.JobID) (models.Progress, error) {
	ctx, span := s.tracer.Start(ctx, "dispatch.advance", trace.WithAttributes(
		attribute.String("job.id", jobID.String()),
	))
	defer span.End()
	start := time.Now()
	defer s.metrics.ObserveAdvance(start)

	unlock := s.locks.lock(jobID)
	defer unlock()

	job, err := s.store.FindByID(ctx, jobID)
	if err != nil {
		span.SetStatus(codes.Error, "load job")
		return models.Progress{}, translate(err, "failed to load job")
	}
	if job.Status.IsTerminal() {
		return job.Progress(), nil
	}

	prevCursor, prevStatus := job.Cursor, job.Status
	now := requestcontext.Now(ctx)

	if job.CancelRequested {
		job.Status = models.StatusCancelled
		job.UpdatedAt = now
		if err := s.save(ctx, job, prevCursor, prevStatus, nil); err != nil {
			return models.Progress{}, err
		}
		s.finished(ctx, job)
		return job.Progress(), nil
	}

	job.Status = models.StatusRunning
	slice := job.NextSlice()
	deliveries, err := s.deliver(ctx, job, slice)
	if err != nil {
		span.SetStatus(codes.Error, "read eligibility")
		return models.Progress{}, err
	}

	job.Cursor += len(slice)
	if job.Cursor >= job.Total {
		job.Finish()
	}
	job.UpdatedAt = now
	job.LastAdvancedAt = &now

	if err := s.save(ctx, job, prevCursor, prevStatus, deliveries); err != nil {
		span.SetStatus(codes.Error, "save progress")
		return models.Progress{}, err
	}

	span.SetAttributes(
		attribute.Int("job.cursor", job.Cursor),
		attribute.Int("job.total", job.Total),
		attribute.String("job.status", string(job.Status)),
	)
	s.logger.DebugContext(ctx, "job advanced",
		"job_id", job.ID,
		"cursor", job.Cursor,
		"total", job.Total,
		"status", job.Status,
	)
	if job.Status.IsTerminal() {
		s.finished(ctx, job)
	}
	return job.Progress(), nil
}

// deliver sends to every eligible recipient in slice and records an outcome
// for each position. Transport failures are recorded, never returned.
func (s *Service) deliver(ctx context.Context, job *models.Job, slice []id.RecipientID) ([]models.Delivery, error) {
	if len(slice) == 0 {
		return nil, nil
	}
	current, err := s.recipients.Eligibility(ctx, slice)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to read recipient eligibility")
	}

	deliveries := make([]models.Delivery, 0, len(slice))
	var sent, failed, skipped int
	for i, rid := range slice {
		d := models.Delivery{
			JobID:       job.ID,
			RecipientID: rid,
			Position:    job.Cursor + i,
			CreatedAt:   requestcontext.Now(ctx),
		}
		r, ok := current[rid]
		switch {
		case !ok:
			d.Status = models.DeliverySkipped
			d.Error = "recipient not found"
			skipped++
		case !r.Eligible():
			d.Status = models.DeliverySkipped
			d.Error = "recipient not eligible"
			skipped++
		default:
			delivered, err := s.transport.Send(ctx, models.Message{
				JobID:       job.ID,
				RecipientID: rid,
				Address:     r.Address,
				Subject:     job.Payload.Subject,
				Body:        job.Payload.Body,
				TestID:      job.Payload.TestID,
				Variant:     job.Payload.Variant,
			})
			switch {
			case err != nil:
				d.Status = models.DeliveryFailed
				d.Error = err.Error()
				failed++
			case !delivered:
				d.Status = models.DeliveryFailed
				d.Error = "not delivered"
				failed++
			default:
				d.Status = models.DeliverySent
				sent++
			}
		}
		deliveries = append(deliveries, d)
	}
	job.Sent += sent
	job.Failed += failed
	job.Skipped += skipped
	s.metrics.ObserveDeliveries(sent, failed, skipped)
	return deliveries, nil
}

func (s *Service) save(ctx context.Context, job *models.Job, prevCursor int, prevStatus models.Status, deliveries []models.Delivery) error {
	err := s.store.SaveProgress(ctx, job, prevCursor, prevStatus, deliveries)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrConflict) {
		s.metrics.IncrementConflict()
		s.logger.WarnContext(ctx, "job advanced concurrently", "job_id", job.ID, "cursor", prevCursor)
		return dErrors.New(dErrors.CodeConflict, "job was advanced concurrently")
	}
	return translate(err, "failed to persist job progress")
}

func (s *Service) finished(ctx context.Context, job *models.Job) {
	s.metrics.IncrementFinished(string(job.Status))
	s.logAudit(ctx, audit.EventJobFinished,
		"job_id", job.ID,
		"decision", string(job.Status),
		"sent", job.Sent,
		"failed", job.Failed,
		"skipped", job.Skipped,
	)
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attrs ...any) {
	audit.LogAudit(ctx, s.logger, s.auditPublisher, event, attrs...)
}

func translate(err error, msg string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "job not found")
	case errors.Is(err, store.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "job already finished")
	case errors.Is(err, store.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "job was modified concurrently")
	}
	return dErrors.Wrap(err, dErrors.CodeStoreFailure, msg)
}
