package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"campaign/internal/recipient/models"
	"campaign/internal/recipient/store"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/audit"
	"campaign/pkg/platform/audit/publisher"
	auditmemory "campaign/pkg/platform/audit/store/memory"
)

type RecipientServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.InMemoryStore
	audit   *auditmemory.InMemoryStore
	service *Service
}

func TestRecipientServiceSuite(t *testing.T) {
	suite.Run(t, new(RecipientServiceSuite))
}

func (s *RecipientServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemoryStore()
	s.audit = auditmemory.NewInMemoryStore()
	s.service = New(s.store, WithAuditPublisher(publisher.NewPublisher(s.audit)))
}

func (s *RecipientServiceSuite) subscribe(addr string, segments ...string) *models.Recipient {
	r, err := s.service.Subscribe(s.ctx, models.SubscribeRequest{Address: addr, Segments: segments})
	s.Require().NoError(err)
	return r
}

// =============================================================================
// Subscribe
// =============================================================================

func (s *RecipientServiceSuite) TestSubscribe() {
	s.Run("normalizes address and segments", func() {
		r := s.subscribe("Alice@Example.COM", " Donors ", "donors", "")
		s.Equal("Alice@example.com", r.Address)
		s.Equal([]string{"donors"}, r.Segments)
		s.False(r.Eligible())
	})

	s.Run("duplicate address conflicts", func() {
		_, err := s.service.Subscribe(s.ctx, models.SubscribeRequest{Address: "Alice@EXAMPLE.com"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid address", func() {
		_, err := s.service.Subscribe(s.ctx, models.SubscribeRequest{Address: "not an address"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// =============================================================================
// Lifecycle
// =============================================================================

func (s *RecipientServiceSuite) TestVerifyThenOptOut() {
	r := s.subscribe("bob@example.com")

	verified, err := s.service.Verify(s.ctx, r.ID)
	s.Require().NoError(err)
	s.True(verified.Eligible())

	eligible, err := s.service.ListEligible(s.ctx, "")
	s.Require().NoError(err)
	s.Len(eligible, 1)

	out, err := s.service.OptOut(s.ctx, r.ID)
	s.Require().NoError(err)
	s.True(out.OptedOut)

	eligible, err = s.service.ListEligible(s.ctx, "")
	s.Require().NoError(err)
	s.Empty(eligible)
}

// Justification: opt-out is terminal; a later verify webhook must not make
// the recipient eligible again.
func (s *RecipientServiceSuite) TestOptOutIsTerminal() {
	r := s.subscribe("carol@example.com")
	_, err := s.service.OptOut(s.ctx, r.ID)
	s.Require().NoError(err)

	again, err := s.service.OptOut(s.ctx, r.ID)
	s.Require().NoError(err)
	s.True(again.OptedOut)

	after, err := s.service.Verify(s.ctx, r.ID)
	s.Require().NoError(err)
	s.False(after.Eligible())

	stored, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.True(stored.OptedOut)

	events, err := s.audit.ListBySubject(s.ctx, "recipient:"+r.ID.String())
	s.Require().NoError(err)
	optOuts := 0
	for _, e := range events {
		if e.Action == string(audit.EventRecipientOptedOut) {
			optOuts++
		}
	}
	s.Equal(1, optOuts)
}

func (s *RecipientServiceSuite) TestEligibilityReadsCurrentState() {
	a := s.subscribe("a@example.com")
	b := s.subscribe("b@example.com")
	_, err := s.service.Verify(s.ctx, a.ID)
	s.Require().NoError(err)
	missing := id.NewRecipientID()

	got, err := s.service.Eligibility(s.ctx, []id.RecipientID{a.ID, b.ID, missing})
	s.Require().NoError(err)
	s.Len(got, 2)
	gotA, gotB := got[a.ID], got[b.ID]
	s.True(gotA.Eligible())
	s.False(gotB.Eligible())
	_, ok := got[missing]
	s.False(ok)
}

func (s *RecipientServiceSuite) TestListEligibleBySegment() {
	a := s.subscribe("a@example.com", "donors")
	b := s.subscribe("b@example.com", "press")
	for _, r := range []*models.Recipient{a, b} {
		_, err := s.service.Verify(s.ctx, r.ID)
		s.Require().NoError(err)
	}

	donors, err := s.service.ListEligible(s.ctx, "donors")
	s.Require().NoError(err)
	s.Require().Len(donors, 1)
	s.Equal(a.ID, donors[0].ID)
}

func (s *RecipientServiceSuite) TestUnknownRecipient() {
	_, err := s.service.Verify(s.ctx, id.NewRecipientID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.service.OptOut(s.ctx, id.NewRecipientID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
