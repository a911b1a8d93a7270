// Package service implements the document catalog: tier-gated reads through
// the cache and admin mutations that invalidate it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campaign/internal/access"
	"campaign/internal/cache"
	"campaign/internal/catalog/models"
	"campaign/internal/catalog/store"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/audit"
)

// GroupCatalog tags every cached catalog read.
const GroupCatalog = "catalog"

const maxListSize = 100

type Store interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	ListFeatured(ctx context.Context, maxTier access.Tier, n int) ([]models.Document, error)
	CategoryCounts(ctx context.Context) ([]models.CategoryCount, error)
	MostDownloaded(ctx context.Context, n int) ([]models.Document, error)
}

// Service serves catalog reads and mutations.
type Service struct {
	store   Store
	docs    *cache.Store[models.Document]
	lists   *cache.Store[[]models.Document]
	counts  *cache.Store[[]models.CategoryCount]
	groups  cache.Invalidator
	docTTL  time.Duration
	aggTTL  time.Duration
	logger  *slog.Logger
	auditor audit.Emitter
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p audit.Emitter) Option {
	return func(s *Service) { s.auditor = p }
}

// WithTTLs sets the TTL for single documents and for aggregate lists.
func WithTTLs(doc, aggregate time.Duration) Option {
	return func(s *Service) {
		s.docTTL = doc
		s.aggTTL = aggregate
	}
}

func New(st Store, backend cache.Backend, opts ...Option) (*Service, error) {
	s := &Service{
		store:  st,
		groups: backend.Groups(),
		docTTL: 5 * time.Minute,
		aggTTL: 10 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	var err error
	if s.docs, err = cache.NewStore[models.Document](backend, "catalog.doc", s.docTTL); err != nil {
		return nil, err
	}
	if s.lists, err = cache.NewStore[[]models.Document](backend, "catalog.list", s.aggTTL); err != nil {
		return nil, err
	}
	if s.counts, err = cache.NewStore[[]models.CategoryCount](backend, "catalog.counts", s.aggTTL); err != nil {
		return nil, err
	}
	return s, nil
}

func docKey(docID id.DocumentID) string { return "doc:" + docID.String() }

// GetDocument returns the document if caps may read its tier. A caller who
// cannot read every tier gets Forbidden for a missing document, so absence
// and denial look the same to them.
func (s *Service) GetDocument(ctx context.Context, docID id.DocumentID, caps access.Capabilities) (*models.Document, error) {
	key := docKey(docID)
	doc, err := s.docs.GetOrCompute(ctx, key, s.docTTL, []string{GroupCatalog, key},
		func(ctx context.Context) (models.Document, error) {
			d, err := s.store.FindByID(ctx, docID)
			if err != nil {
				return models.Document{}, err
			}
			return *d, nil
		})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if !access.CanRead(caps, access.TierPrivate) {
				return nil, dErrors.New(dErrors.CodeForbidden, "access denied")
			}
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	if !access.CanRead(caps, doc.Tier) {
		return nil, dErrors.New(dErrors.CodeForbidden, "access denied")
	}
	return &doc, nil
}

// ListFeatured returns up to n featured documents the caller may read,
// ordered by featured rank.
func (s *Service) ListFeatured(ctx context.Context, n int, caps access.Capabilities) ([]models.Document, error) {
	if err := validateLimit(n); err != nil {
		return nil, err
	}
	maxTier := access.MaxReadable(caps)
	key := fmt.Sprintf("featured:%s:%d", maxTier, n)
	docs, err := s.lists.GetOrCompute(ctx, key, s.aggTTL, []string{GroupCatalog},
		func(ctx context.Context) ([]models.Document, error) {
			return s.store.ListFeatured(ctx, maxTier, n)
		})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list featured documents")
	}
	return docs, nil
}

// CategoryCounts counts public documents per category.
func (s *Service) CategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	counts, err := s.counts.GetOrCompute(ctx, "categories", s.aggTTL, []string{GroupCatalog},
		s.store.CategoryCounts)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count categories")
	}
	return counts, nil
}

// MostDownloaded returns the n most downloaded public documents.
func (s *Service) MostDownloaded(ctx context.Context, n int) ([]models.Document, error) {
	if err := validateLimit(n); err != nil {
		return nil, err
	}
	docs, err := s.lists.GetOrCompute(ctx, fmt.Sprintf("popular:%d", n), s.aggTTL, []string{GroupCatalog},
		func(ctx context.Context) ([]models.Document, error) {
			return s.store.MostDownloaded(ctx, n)
		})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list popular documents")
	}
	return docs, nil
}

func validateLimit(n int) error {
	if n < 1 || n > maxListSize {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("n must be between 1 and %d", maxListSize))
	}
	return nil
}
