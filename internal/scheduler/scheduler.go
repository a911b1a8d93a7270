// Package scheduler is the periodic trigger that advances dispatch jobs and
// completes decided split tests. Send pacing lives here: the dispatcher
// advances whenever it is asked to.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	dmodels "campaign/internal/dispatch/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/requestcontext"
)

type Dispatcher interface {
	ListActive(ctx context.Context, limit int) ([]dmodels.Job, error)
	Advance(ctx context.Context, jobID id.JobID) (dmodels.Progress, error)
}

type Reconciler interface {
	ReconcileDecided(ctx context.Context, limit int) (int, error)
}

type Config struct {
	Interval         time.Duration
	MinChunkInterval time.Duration
	JobsPerTick      int
}

type Metrics struct {
	Ticks    prometheus.Counter
	Advances *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "campaign_scheduler_ticks_total",
			Help: "Scheduler ticks run",
		}),
		Advances: f.NewCounterVec(prometheus.CounterOpts{
			Name: "campaign_scheduler_advances_total",
			Help: "Advance calls issued by the scheduler, by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) tick() {
	if m == nil {
		return
	}
	m.Ticks.Inc()
}

func (m *Metrics) advance(result string) {
	if m == nil {
		return
	}
	m.Advances.WithLabelValues(result).Inc()
}

type Scheduler struct {
	dispatcher Dispatcher
	reconciler Reconciler
	cfg        Config
	logger     *slog.Logger
	metrics    *Metrics
	now        func() time.Time
}

type Option func(*Scheduler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithReconciler completes decided split tests after each round of advances.
func WithReconciler(r Reconciler) Option {
	return func(s *Scheduler) { s.reconciler = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(dispatcher Dispatcher, cfg Config, opts ...Option) (*Scheduler, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("scheduler interval must be positive")
	}
	if cfg.JobsPerTick <= 0 {
		cfg.JobsPerTick = 10
	}
	s := &Scheduler{
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run ticks every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// TickResult summarizes one tick.
type TickResult struct {
	Advanced  int
	Deferred  int
	Failed    int
	Completed int
}

// Tick advances at most JobsPerTick due jobs by one chunk each, then
// reconciles decided split tests.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	s.metrics.tick()
	var res TickResult
	now := s.now()
	ctx = requestcontext.WithTime(ctx, now)

	jobs, err := s.dispatcher.ListActive(ctx, s.cfg.JobsPerTick)
	if err != nil {
		s.logger.WarnContext(ctx, "scheduler could not list active jobs", "error", err)
	}
	for _, job := range jobs {
		if ctx.Err() != nil {
			return res
		}
		if !s.due(job, now) {
			res.Deferred++
			continue
		}
		p, err := s.dispatcher.Advance(ctx, job.ID)
		switch {
		case err == nil:
			res.Advanced++
			s.metrics.advance("ok")
			if p.Done {
				s.logger.InfoContext(ctx, "job finished", "job_id", job.ID, "status", p.Status)
			}
		case dErrors.HasCode(err, dErrors.CodeConflict):
			res.Failed++
			s.metrics.advance("conflict")
			s.logger.DebugContext(ctx, "job advanced elsewhere", "job_id", job.ID)
		default:
			res.Failed++
			s.metrics.advance("error")
			s.logger.WarnContext(ctx, "scheduled advance failed", "job_id", job.ID, "error", err)
		}
	}

	if s.reconciler != nil && ctx.Err() == nil {
		n, err := s.reconciler.ReconcileDecided(ctx, s.cfg.JobsPerTick)
		if err != nil {
			s.logger.WarnContext(ctx, "split test reconcile failed", "error", err)
		}
		res.Completed = n
	}
	return res
}

func (s *Scheduler) due(job dmodels.Job, now time.Time) bool {
	if job.LastAdvancedAt == nil {
		return true
	}
	return !now.Before(job.LastAdvancedAt.Add(s.cfg.MinChunkInterval))
}
