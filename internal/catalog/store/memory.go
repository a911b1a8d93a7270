package store

import (
	"context"
	"sort"
	"sync"

	"campaign/internal/access"
	"campaign/internal/catalog/models"
	id "campaign/pkg/domain"
)

// InMemoryStore keeps documents in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu     sync.RWMutex
	docs   map[id.DocumentID]*models.Document
	bySlug map[string]id.DocumentID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		docs:   make(map[id.DocumentID]*models.Document),
		bySlug: make(map[string]id.DocumentID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySlug[doc.Slug]; ok {
		return ErrConflict
	}
	if _, ok := s.docs[doc.ID]; ok {
		return ErrConflict
	}
	cp := *doc
	s.docs[doc.ID] = &cp
	s.bySlug[doc.Slug] = doc.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[docID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// Update saves doc if the stored version is doc.Version-1. The download
// count is never overwritten.
func (s *InMemoryStore) Update(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.docs[doc.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != doc.Version-1 {
		return ErrConflict
	}
	next := *doc
	next.DownloadCount = cur.DownloadCount
	next.Slug = cur.Slug
	s.docs[doc.ID] = &next
	return nil
}

func (s *InMemoryStore) ListFeatured(_ context.Context, maxTier access.Tier, n int) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Document
	for _, d := range s.docs {
		if d.Featured && d.Tier.Rank() <= maxTier.Rank() {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FeaturedRank != out[j].FeaturedRank {
			return out[i].FeaturedRank < out[j].FeaturedRank
		}
		return out[i].Slug < out[j].Slug
	})
	return truncate(out, n), nil
}

func (s *InMemoryStore) CategoryCounts(_ context.Context) ([]models.CategoryCount, error) {
	s.mu.RLock()
	counts := make(map[string]int64)
	for _, d := range s.docs {
		if d.Tier == access.TierPublic {
			counts[d.Category]++
		}
	}
	s.mu.RUnlock()

	out := make([]models.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, models.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *InMemoryStore) MostDownloaded(_ context.Context, n int) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Document
	for _, d := range s.docs {
		if d.Tier == access.TierPublic {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DownloadCount != out[j].DownloadCount {
			return out[i].DownloadCount > out[j].DownloadCount
		}
		return out[i].Slug < out[j].Slug
	})
	return truncate(out, n), nil
}

// IncrementDownloads adds one to the counter and returns the new value.
func (s *InMemoryStore) IncrementDownloads(_ context.Context, docID id.DocumentID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[docID]
	if !ok {
		return 0, ErrNotFound
	}
	d.DownloadCount++
	return d.DownloadCount, nil
}

func truncate(docs []models.Document, n int) []models.Document {
	if n >= 0 && len(docs) > n {
		docs = docs[:n]
	}
	if docs == nil {
		return []models.Document{}
	}
	return docs
}
