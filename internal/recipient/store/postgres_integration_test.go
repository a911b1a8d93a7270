//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"campaign/internal/recipient/models"
	"campaign/internal/recipient/store"
	id "campaign/pkg/domain"
	"campaign/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "recipients"))
	s.now = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) create(address string, verified bool, segments ...string) *models.Recipient {
	s.now = s.now.Add(time.Minute)
	r := models.NewRecipient(id.NewRecipientID(), address, segments, s.now)
	if verified {
		r.Verify(s.now)
	}
	s.Require().NoError(s.store.Create(context.Background(), r))
	return r
}

func (s *PostgresStoreSuite) TestDuplicateAddressConflicts() {
	s.create("dup@example.com", false)
	r := models.NewRecipient(id.NewRecipientID(), "dup@example.com", nil, s.now)
	s.ErrorIs(s.store.Create(context.Background(), r), store.ErrConflict)
}

func (s *PostgresStoreSuite) TestSaveNeverClearsOptOut() {
	ctx := context.Background()
	r := s.create("leaver@example.com", true)
	r.OptOut(s.now)
	s.Require().NoError(s.store.Save(ctx, r))

	// A stale copy that still says subscribed must not resurrect the recipient.
	stale := *r
	stale.OptedOut = false
	stale.OptedOutAt = nil
	s.Require().NoError(s.store.Save(ctx, &stale))

	got, err := s.store.FindByID(ctx, r.ID)
	s.Require().NoError(err)
	s.True(got.OptedOut)
	s.NotNil(got.OptedOutAt)

	missing := models.NewRecipient(id.NewRecipientID(), "ghost@example.com", nil, s.now)
	s.ErrorIs(s.store.Save(ctx, missing), store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListEligibleFiltersAndOrders() {
	ctx := context.Background()
	first := s.create("first@example.com", true, "news")
	s.create("unverified@example.com", false, "news")
	second := s.create("second@example.com", true)
	opted := s.create("opted@example.com", true, "news")
	opted.OptOut(s.now)
	s.Require().NoError(s.store.Save(ctx, opted))

	all, err := s.store.ListEligible(ctx, "")
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(first.ID, all[0].ID)
	s.Equal(second.ID, all[1].ID)

	news, err := s.store.ListEligible(ctx, "news")
	s.Require().NoError(err)
	s.Require().Len(news, 1)
	s.Equal(first.ID, news[0].ID)
}

func (s *PostgresStoreSuite) TestFindManySkipsUnknown() {
	ctx := context.Background()
	a := s.create("a@example.com", true)
	b := s.create("b@example.com", false)

	got, err := s.store.FindMany(ctx, []id.RecipientID{a.ID, b.ID, id.NewRecipientID()})
	s.Require().NoError(err)
	s.Len(got, 2)
	s.Equal("b@example.com", got[b.ID].Address)

	empty, err := s.store.FindMany(ctx, nil)
	s.Require().NoError(err)
	s.Empty(empty)
}
