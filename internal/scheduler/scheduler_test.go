package scheduler

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	dmodels "campaign/internal/dispatch/models"
	dservice "campaign/internal/dispatch/service"
	dstore "campaign/internal/dispatch/store"
	"campaign/internal/platform/logger"
	rmodels "campaign/internal/recipient/models"
	rservice "campaign/internal/recipient/service"
	rstore "campaign/internal/recipient/store"
	id "campaign/pkg/domain"
	"campaign/pkg/requestcontext"
)

type deliverAll struct{}

func (deliverAll) Send(context.Context, dmodels.Message) (bool, error) { return true, nil }

type countingReconciler struct {
	calls atomic.Int32
	err   error
}

func (r *countingReconciler) ReconcileDecided(context.Context, int) (int, error) {
	r.calls.Add(1)
	return 1, r.err
}

// =============================================================================
// Scheduler Suite
// =============================================================================
// Justification: the scheduler owns send pacing. These tests drive Tick with a
// fake clock against the real in-memory dispatcher.

type SchedulerSuite struct {
	suite.Suite
	ctx        context.Context
	clock      time.Time
	recipients *rservice.Service
	dispatch   *dservice.Service
	reconciler *countingReconciler
	metrics    *Metrics
	scheduler  *Scheduler
}

func TestSchedulerSuite(t *testing.T) {
	suite.Run(t, new(SchedulerSuite))
}

func (s *SchedulerSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s.recipients = rservice.New(rstore.NewInMemoryStore(), rservice.WithLogger(logger.Discard()))
	dispatch, err := dservice.New(dstore.NewInMemoryStore(), s.recipients, deliverAll{},
		dservice.WithLogger(logger.Discard()))
	s.Require().NoError(err)
	s.dispatch = dispatch
	s.reconciler = &countingReconciler{}
	s.metrics = NewMetrics(prometheus.NewRegistry())
	sched, err := New(s.dispatch, Config{
		Interval:         time.Second,
		MinChunkInterval: time.Minute,
		JobsPerTick:      2,
	},
		WithLogger(logger.Discard()),
		WithMetrics(s.metrics),
		WithReconciler(s.reconciler),
		WithClock(func() time.Time { return s.clock }),
	)
	s.Require().NoError(err)
	s.scheduler = sched
}

func (s *SchedulerSuite) submit(n, chunk int) id.JobID {
	ctx := requestcontext.WithTime(s.ctx, s.clock.Add(-time.Hour))
	ids := make([]id.RecipientID, 0, n)
	for i := range n {
		r, err := s.recipients.Subscribe(ctx, rmodels.SubscribeRequest{
			Address: "r" + strconv.Itoa(i) + "-" + id.NewJobID().String()[:8] + "@example.com",
		})
		s.Require().NoError(err)
		_, err = s.recipients.Verify(ctx, r.ID)
		s.Require().NoError(err)
		ids = append(ids, r.ID)
	}
	jobID, err := s.dispatch.Submit(ctx, ids, chunk, dmodels.Payload{Subject: "s", Body: "b"})
	s.Require().NoError(err)
	return jobID
}

func (s *SchedulerSuite) TestNew() {
	_, err := New(nil, Config{Interval: time.Second})
	s.ErrorContains(err, "dispatcher is required")
	_, err = New(s.dispatch, Config{})
	s.ErrorContains(err, "interval must be positive")
}

func (s *SchedulerSuite) TestRespectsMinChunkInterval() {
	jobID := s.submit(230, 50)

	res := s.scheduler.Tick(s.ctx)
	s.Equal(1, res.Advanced)

	s.clock = s.clock.Add(30 * time.Second)
	res = s.scheduler.Tick(s.ctx)
	s.Equal(0, res.Advanced)
	s.Equal(1, res.Deferred)

	for range 4 {
		s.clock = s.clock.Add(time.Minute)
		res = s.scheduler.Tick(s.ctx)
		s.Equal(1, res.Advanced)
	}

	job, err := s.dispatch.Get(s.ctx, jobID)
	s.Require().NoError(err)
	s.Equal(dmodels.StatusCompleted, job.Status)
	s.Equal(230, job.Sent)
	s.Require().NotNil(job.LastAdvancedAt)
	s.True(job.LastAdvancedAt.Equal(s.clock))

	s.clock = s.clock.Add(time.Minute)
	res = s.scheduler.Tick(s.ctx)
	s.Equal(TickResult{Completed: 1}, res)
	s.Equal(5.0, testutil.ToFloat64(s.metrics.Advances.WithLabelValues("ok")))
}

func (s *SchedulerSuite) TestBoundsWorkPerTick() {
	s.submit(10, 5)
	s.submit(10, 5)
	s.submit(10, 5)

	res := s.scheduler.Tick(s.ctx)
	s.Equal(2, res.Advanced)

	// The job left out is now the least recently advanced.
	res = s.scheduler.Tick(s.ctx)
	s.Equal(1, res.Advanced)
	s.Equal(1, res.Deferred)
}

func (s *SchedulerSuite) TestReconcilesEveryTick() {
	s.scheduler.Tick(s.ctx)
	s.reconciler.err = errors.New("connection reset")
	s.scheduler.Tick(s.ctx)
	s.Equal(int32(2), s.reconciler.calls.Load())
	s.Equal(2.0, testutil.ToFloat64(s.metrics.Ticks))
}

func (s *SchedulerSuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.scheduler.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("scheduler did not stop")
	}
}
