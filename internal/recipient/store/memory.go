package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"campaign/internal/recipient/models"
	id "campaign/pkg/domain"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	byID      map[id.RecipientID]*models.Recipient
	byAddress map[string]id.RecipientID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:      make(map[id.RecipientID]*models.Recipient),
		byAddress: make(map[string]id.RecipientID),
	}
}

func clone(r *models.Recipient) *models.Recipient {
	cp := *r
	cp.Segments = slices.Clone(r.Segments)
	return &cp
}

func (s *InMemoryStore) Create(_ context.Context, r *models.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byAddress[r.Address]; ok {
		return ErrConflict
	}
	s.byID[r.ID] = clone(r)
	s.byAddress[r.Address] = r.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recipientID id.RecipientID) (*models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[recipientID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(r), nil
}

// Save writes the verification and opt-out state. An opt-out already
// recorded is kept even if r says otherwise.
func (s *InMemoryStore) Save(_ context.Context, r *models.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byID[r.ID]
	if !ok {
		return ErrNotFound
	}
	next := clone(r)
	next.Address = cur.Address
	if cur.OptedOut {
		next.OptedOut = true
		next.OptedOutAt = cur.OptedOutAt
	}
	s.byID[r.ID] = next
	return nil
}

// FindMany returns the recipients among ids that exist.
func (s *InMemoryStore) FindMany(_ context.Context, ids []id.RecipientID) (map[id.RecipientID]models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.RecipientID]models.Recipient, len(ids))
	for _, rid := range ids {
		if r, ok := s.byID[rid]; ok {
			out[rid] = *clone(r)
		}
	}
	return out, nil
}

// ListEligible returns eligible recipients in segment ordered by
// subscription time then id.
func (s *InMemoryStore) ListEligible(_ context.Context, segment string) ([]models.Recipient, error) {
	s.mu.RLock()
	out := []models.Recipient{}
	for _, r := range s.byID {
		if r.Eligible() && r.InSegment(segment) {
			out = append(out, *clone(r))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubscribedAt.Equal(out[j].SubscribedAt) {
			return out[i].SubscribedAt.Before(out[j].SubscribedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
