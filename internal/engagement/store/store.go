// Package store persists engagement events. Recording is idempotent per
// (test, variant, kind, recipient).
package store

import (
	"context"
	"sync"

	"campaign/internal/engagement/models"
	smodels "campaign/internal/splittest/models"
	id "campaign/pkg/domain"
)

type eventKey struct {
	test      id.SplitTestID
	variant   smodels.Variant
	kind      models.Kind
	recipient id.RecipientID
}

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[eventKey]models.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[eventKey]models.Event)}
}

// Record stores e and reports whether it was new.
func (s *InMemoryStore) Record(_ context.Context, e models.Event) (bool, error) {
	k := eventKey{test: e.TestID, variant: e.Variant, kind: e.Kind, recipient: e.RecipientID}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[k]; ok {
		return false, nil
	}
	s.events[k] = e
	return true, nil
}

// CountDistinct counts recipients of the variant with at least one event of
// any of kinds.
func (s *InMemoryStore) CountDistinct(_ context.Context, testID id.SplitTestID, variant smodels.Variant, kinds []models.Kind) (int, error) {
	want := make(map[models.Kind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[id.RecipientID]struct{})
	for k := range s.events {
		if k.test == testID && k.variant == variant && want[k.kind] {
			seen[k.recipient] = struct{}{}
		}
	}
	return len(seen), nil
}
