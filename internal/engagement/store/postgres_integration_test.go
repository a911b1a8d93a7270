//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"campaign/internal/engagement/models"
	"campaign/internal/engagement/store"
	smodels "campaign/internal/splittest/models"
	id "campaign/pkg/domain"
	"campaign/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
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
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "engagement_events"))
}

func (s *PostgresStoreSuite) record(testID id.SplitTestID, v smodels.Variant, r id.RecipientID, k models.Kind) bool {
	fresh, err := s.store.Record(context.Background(), models.Event{
		TestID: testID, Variant: v, RecipientID: r, Kind: k, OccurredAt: time.Now().UTC(),
	})
	s.Require().NoError(err)
	return fresh
}

func (s *PostgresStoreSuite) TestRecordIsIdempotent() {
	testID, r := id.NewSplitTestID(), id.NewRecipientID()
	s.True(s.record(testID, smodels.VariantA, r, models.KindOpen))
	s.False(s.record(testID, smodels.VariantA, r, models.KindOpen))
	s.True(s.record(testID, smodels.VariantA, r, models.KindClick))
}

func (s *PostgresStoreSuite) TestCountDistinctPerMetric() {
	ctx := context.Background()
	testID := id.NewSplitTestID()
	both, clicker, opener := id.NewRecipientID(), id.NewRecipientID(), id.NewRecipientID()
	s.record(testID, smodels.VariantA, both, models.KindOpen)
	s.record(testID, smodels.VariantA, both, models.KindClick)
	s.record(testID, smodels.VariantA, clicker, models.KindClick)
	s.record(testID, smodels.VariantA, opener, models.KindOpen)
	s.record(testID, smodels.VariantB, id.NewRecipientID(), models.KindClick)
	s.record(id.NewSplitTestID(), smodels.VariantA, id.NewRecipientID(), models.KindClick)

	opens, err := s.store.CountDistinct(ctx, testID, smodels.VariantA, models.KindsFor(smodels.MetricOpenRate))
	s.Require().NoError(err)
	s.Equal(3, opens)

	clicks, err := s.store.CountDistinct(ctx, testID, smodels.VariantA, models.KindsFor(smodels.MetricClickRate))
	s.Require().NoError(err)
	s.Equal(2, clicks)

	none, err := s.store.CountDistinct(ctx, id.NewSplitTestID(), smodels.VariantB, models.KindsFor(smodels.MetricOpenRate))
	s.Require().NoError(err)
	s.Zero(none)
}
