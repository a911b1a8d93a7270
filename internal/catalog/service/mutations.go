package service

import (
	"context"
	"errors"

	"campaign/internal/access"
	"campaign/internal/catalog/models"
	"campaign/internal/catalog/store"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/audit"
	"campaign/pkg/requestcontext"
)

func (s *Service) CreateDocument(ctx context.Context, req models.CreateDocumentRequest) (*models.Document, error) {
	req.Normalize()
	doc, err := models.NewDocument(id.NewDocumentID(), req, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, doc); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "slug already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create document")
	}
	if err := s.invalidate(ctx, GroupCatalog); err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventDocumentCreated, "document_id", doc.ID, "tier", doc.Tier)
	return doc, nil
}

// UpdateDocument applies a partial content update. An update that changes
// nothing is not persisted.
func (s *Service) UpdateDocument(ctx context.Context, docID id.DocumentID, req models.UpdateDocumentRequest) (*models.Document, error) {
	doc, err := s.load(ctx, docID)
	if err != nil {
		return nil, err
	}
	changed, err := doc.ApplyUpdate(req, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if !changed {
		return doc, nil
	}
	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.invalidate(ctx, GroupCatalog, docKey(docID)); err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventDocumentUpdated, "document_id", doc.ID, "version", doc.Version)
	return doc, nil
}

// SetTier moves a document to tier. Setting the current tier is a no-op.
// When the tier tightens, the cached copy is evicted before SetTier returns
// so no later read can serve it under the old tier.
func (s *Service) SetTier(ctx context.Context, docID id.DocumentID, tierName string) (*models.Document, error) {
	tier, err := access.ParseTier(tierName)
	if err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, docID)
	if err != nil {
		return nil, err
	}
	prev := doc.Tier
	changed, tightened := doc.ChangeTier(tier, requestcontext.Now(ctx))
	if !changed {
		return doc, nil
	}
	if err := s.save(ctx, doc); err != nil {
		return nil, err
	}
	if tightened {
		if err := s.docs.Invalidate(ctx, docKey(docID)); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to evict document")
		}
	}
	if err := s.invalidate(ctx, docKey(docID), GroupCatalog); err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventDocumentTierChanged,
		"document_id", doc.ID,
		"decision", string(tier),
		"reason", "tier changed from "+string(prev),
	)
	return doc, nil
}

// InvalidateCache bumps group on behalf of an operator.
func (s *Service) InvalidateCache(ctx context.Context, group string) error {
	if group == "" {
		return dErrors.New(dErrors.CodeValidation, "group is required")
	}
	if err := s.invalidate(ctx, group); err != nil {
		return err
	}
	s.logAudit(ctx, audit.EventCacheGroupInvalidated, "group", group)
	return nil
}

func (s *Service) load(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	doc, err := s.store.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	return doc, nil
}

func (s *Service) save(ctx context.Context, doc *models.Document) error {
	if err := s.store.Update(ctx, doc); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "document not found")
		case errors.Is(err, store.ErrConflict):
			return dErrors.New(dErrors.CodeConflict, "document was modified concurrently")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document")
	}
	return nil
}

// invalidate bumps each group. The write has already been persisted, so a
// failure here is reported as a store failure for the caller to retry.
func (s *Service) invalidate(ctx context.Context, groups ...string) error {
	for _, g := range groups {
		if err := s.groups.InvalidateGroup(ctx, g); err != nil {
			s.logger.ErrorContext(ctx, "cache invalidation failed", "group", g, "error", err)
			return dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to invalidate cache")
		}
	}
	return nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attrs ...any) {
	audit.LogAudit(ctx, s.logger, s.auditor, event, attrs...)
}
