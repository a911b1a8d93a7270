package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"campaign/internal/splittest/models"
	id "campaign/pkg/domain"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	tests map[id.SplitTestID]*models.SplitTest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{tests: make(map[id.SplitTestID]*models.SplitTest)}
}

func clone(t *models.SplitTest) *models.SplitTest {
	cp := *t
	cp.RemainderRecipients = slices.Clone(t.RemainderRecipients)
	if t.RemainderJob != nil {
		j := *t.RemainderJob
		cp.RemainderJob = &j
	}
	if t.DecidedAt != nil {
		d := *t.DecidedAt
		cp.DecidedAt = &d
	}
	return &cp
}

func (s *InMemoryStore) Create(_ context.Context, t *models.SplitTest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tests[t.ID] = clone(t)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, testID id.SplitTestID) (*models.SplitTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tests[testID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(t), nil
}

// transition applies fn if the stored outcome is from.
func (s *InMemoryStore) transition(testID id.SplitTestID, from models.Outcome, fn func(*models.SplitTest)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tests[testID]
	if !ok {
		return ErrNotFound
	}
	if t.Outcome != from {
		return ErrConflict
	}
	fn(t)
	return nil
}

func (s *InMemoryStore) MarkSampling(_ context.Context, testID id.SplitTestID, jobA, jobB id.JobID, now time.Time) error {
	return s.transition(testID, models.OutcomePending, func(t *models.SplitTest) {
		t.SampleJobA = jobA
		t.SampleJobB = jobB
		t.Outcome = models.OutcomeSampling
		t.UpdatedAt = now
	})
}

func (s *InMemoryStore) MarkDecided(_ context.Context, testID id.SplitTestID, winner models.Variant, remainder id.JobID, now time.Time) error {
	return s.transition(testID, models.OutcomeSampling, func(t *models.SplitTest) {
		t.Winner = winner
		t.RemainderJob = &remainder
		t.Outcome = models.OutcomeDecided
		t.DecidedAt = &now
		t.UpdatedAt = now
	})
}

func (s *InMemoryStore) MarkCompleted(_ context.Context, testID id.SplitTestID, now time.Time) error {
	return s.transition(testID, models.OutcomeDecided, func(t *models.SplitTest) {
		t.Outcome = models.OutcomeCompleted
		t.UpdatedAt = now
	})
}

// ListByOutcome returns up to limit tests in outcome, oldest first.
func (s *InMemoryStore) ListByOutcome(_ context.Context, outcome models.Outcome, limit int) ([]models.SplitTest, error) {
	s.mu.RLock()
	out := []models.SplitTest{}
	for _, t := range s.tests {
		if t.Outcome == outcome {
			out = append(out, *clone(t))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
