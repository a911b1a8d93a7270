// Package service manages the recipient lifecycle: subscribe, verify and
// the one-way opt-out.
package service

import (
	"context"
	"errors"
	"log/slog"

	"campaign/internal/recipient/models"
	"campaign/internal/recipient/store"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/email"
	"campaign/pkg/platform/audit"
	pstrings "campaign/pkg/platform/strings"
	"campaign/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, r *models.Recipient) error
	FindByID(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error)
	Save(ctx context.Context, r *models.Recipient) error
	FindMany(ctx context.Context, ids []id.RecipientID) (map[id.RecipientID]models.Recipient, error)
	ListEligible(ctx context.Context, segment string) ([]models.Recipient, error)
}

type Service struct {
	store   Store
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

func New(st Store, opts ...Option) *Service {
	s := &Service{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe adds an unverified recipient.
func (s *Service) Subscribe(ctx context.Context, req models.SubscribeRequest) (*models.Recipient, error) {
	addr, err := email.Normalize(req.Address)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid address")
	}
	r := models.NewRecipient(id.NewRecipientID(), addr, pstrings.NormalizeLabels(req.Segments), requestcontext.Now(ctx))
	if err := s.store.Create(ctx, r); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "address already subscribed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to subscribe recipient")
	}
	audit.LogAudit(ctx, s.logger, s.auditor, audit.EventRecipientSubscribed,
		"recipient_id", r.ID, "domain", email.Domain(addr))
	return r, nil
}

func (s *Service) Verify(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error) {
	r, err := s.Get(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if !r.Verify(requestcontext.Now(ctx)) {
		return r, nil
	}
	if err := s.save(ctx, r); err != nil {
		return nil, err
	}
	audit.LogAudit(ctx, s.logger, s.auditor, audit.EventRecipientVerified, "recipient_id", r.ID)
	return r, nil
}

// OptOut is idempotent and cannot be undone.
func (s *Service) OptOut(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error) {
	r, err := s.Get(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if !r.OptOut(requestcontext.Now(ctx)) {
		return r, nil
	}
	if err := s.save(ctx, r); err != nil {
		return nil, err
	}
	audit.LogAudit(ctx, s.logger, s.auditor, audit.EventRecipientOptedOut,
		"recipient_id", r.ID, "decision", "opted_out")
	return r, nil
}

func (s *Service) Get(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error) {
	r, err := s.store.FindByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "recipient not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load recipient")
	}
	return r, nil
}

// ListEligible returns verified, not opted-out recipients in segment. An
// empty segment selects every eligible recipient.
func (s *Service) ListEligible(ctx context.Context, segment string) ([]models.Recipient, error) {
	out, err := s.store.ListEligible(ctx, segment)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to list recipients")
	}
	return out, nil
}

// Eligibility reads the current state of ids. Missing recipients are absent
// from the result. Never cached: callers rely on seeing opt-outs immediately.
func (s *Service) Eligibility(ctx context.Context, ids []id.RecipientID) (map[id.RecipientID]models.Recipient, error) {
	out, err := s.store.FindMany(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to read recipients")
	}
	return out, nil
}

func (s *Service) save(ctx context.Context, r *models.Recipient) error {
	if err := s.store.Save(ctx, r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "recipient not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save recipient")
	}
	return nil
}
