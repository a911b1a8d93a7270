package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"campaign/internal/dispatch/models"
	id "campaign/pkg/domain"
)

type InMemoryStore struct {
	mu         sync.RWMutex
	jobs       map[id.JobID]*models.Job
	deliveries map[id.JobID][]models.Delivery
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		jobs:       make(map[id.JobID]*models.Job),
		deliveries: make(map[id.JobID][]models.Delivery),
	}
}

func cloneJob(j *models.Job) *models.Job {
	cp := *j
	cp.RecipientIDs = slices.Clone(j.RecipientIDs)
	if j.LastAdvancedAt != nil {
		t := *j.LastAdvancedAt
		cp.LastAdvancedAt = &t
	}
	return &cp
}

func (s *InMemoryStore) Create(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return ErrConflict
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, jobID id.JobID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(j), nil
}

// SaveProgress persists cursor, counters and status if the stored job still
// has prevCursor and prevStatus, and appends deliveries.
func (s *InMemoryStore) SaveProgress(_ context.Context, job *models.Job, prevCursor int, prevStatus models.Status, deliveries []models.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.jobs[job.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Cursor != prevCursor || cur.Status != prevStatus {
		return ErrConflict
	}
	cur.Cursor = job.Cursor
	cur.Sent = job.Sent
	cur.Failed = job.Failed
	cur.Skipped = job.Skipped
	cur.Status = job.Status
	cur.UpdatedAt = job.UpdatedAt
	if job.LastAdvancedAt != nil {
		t := *job.LastAdvancedAt
		cur.LastAdvancedAt = &t
	}
	s.deliveries[job.ID] = append(s.deliveries[job.ID], deliveries...)
	return nil
}

// RequestCancel flags a non-terminal job for cancellation.
func (s *InMemoryStore) RequestCancel(_ context.Context, jobID id.JobID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if j.Status.IsTerminal() {
		return ErrInvalidState
	}
	j.CancelRequested = true
	j.UpdatedAt = now
	return nil
}

// ListActive returns up to limit pending or running jobs, least recently
// advanced first. Recipient lists are not loaded.
func (s *InMemoryStore) ListActive(_ context.Context, limit int) ([]models.Job, error) {
	s.mu.RLock()
	out := []models.Job{}
	for _, j := range s.jobs {
		if !j.Status.IsTerminal() {
			cp := cloneJob(j)
			cp.RecipientIDs = nil
			out = append(out, *cp)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, k int) bool {
		return advancedAt(out[i]).Before(advancedAt(out[k]))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func advancedAt(j models.Job) time.Time {
	if j.LastAdvancedAt != nil {
		return *j.LastAdvancedAt
	}
	return j.CreatedAt
}

func (s *InMemoryStore) ListDeliveries(_ context.Context, jobID id.JobID) ([]models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.jobs[jobID]; !ok {
		return nil, ErrNotFound
	}
	out := slices.Clone(s.deliveries[jobID])
	if out == nil {
		out = []models.Delivery{}
	}
	return out, nil
}
