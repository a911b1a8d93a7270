//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"campaign/internal/access"
	"campaign/internal/catalog/models"
	"campaign/internal/catalog/store"
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
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "documents"))
}

func (s *PostgresStoreSuite) newDocument(slug, category string, tier access.Tier) *models.Document {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Document{
		ID:        id.NewDocumentID(),
		Slug:      slug,
		Title:     "Title " + slug,
		Category:  category,
		Tier:      tier,
		Body:      "body",
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	doc := s.newDocument("annual", "reports", access.TierRestricted)
	s.Require().NoError(s.store.Create(ctx, doc))

	got, err := s.store.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(doc.Slug, got.Slug)
	s.Equal(access.TierRestricted, got.Tier)
	s.True(doc.CreatedAt.Equal(got.CreatedAt))

	_, err = s.store.FindByID(ctx, id.NewDocumentID())
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestDuplicateSlugConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newDocument("dup", "reports", access.TierPublic)))
	err := s.store.Create(ctx, s.newDocument("dup", "reports", access.TierPublic))
	s.ErrorIs(err, store.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdateRequiresNextVersion() {
	ctx := context.Background()
	doc := s.newDocument("versioned", "reports", access.TierPublic)
	s.Require().NoError(s.store.Create(ctx, doc))

	doc.Version = 2
	doc.Tier = access.TierPrivate
	s.Require().NoError(s.store.Update(ctx, doc))

	// Replaying the same version loses the race.
	s.ErrorIs(s.store.Update(ctx, doc), store.ErrConflict)

	got, err := s.store.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.EqualValues(2, got.Version)
	s.Equal(access.TierPrivate, got.Tier)
}

func (s *PostgresStoreSuite) TestConcurrentDownloadsNeverLoseIncrements() {
	ctx := context.Background()
	doc := s.newDocument("popular", "guides", access.TierPublic)
	s.Require().NoError(s.store.Create(ctx, doc))

	const workers = 25
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.IncrementDownloads(ctx, doc.ID)
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.store.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.EqualValues(workers, got.DownloadCount)

	_, err = s.store.IncrementDownloads(ctx, id.NewDocumentID())
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestAggregates() {
	ctx := context.Background()
	public := s.newDocument("a-public", "guides", access.TierPublic)
	public.Featured, public.FeaturedRank = true, 2
	private := s.newDocument("b-private", "guides", access.TierPrivate)
	private.Featured, private.FeaturedRank = true, 1
	report := s.newDocument("c-report", "reports", access.TierPublic)
	for _, d := range []*models.Document{public, private, report} {
		s.Require().NoError(s.store.Create(ctx, d))
	}
	for range 3 {
		_, err := s.store.IncrementDownloads(ctx, report.ID)
		s.Require().NoError(err)
	}

	featured, err := s.store.ListFeatured(ctx, access.TierPublic, 10)
	s.Require().NoError(err)
	s.Require().Len(featured, 1)
	s.Equal(public.ID, featured[0].ID)

	featured, err = s.store.ListFeatured(ctx, access.TierPrivate, 10)
	s.Require().NoError(err)
	s.Require().Len(featured, 2)
	s.Equal(private.ID, featured[0].ID)

	counts, err := s.store.CategoryCounts(ctx)
	s.Require().NoError(err)
	s.Len(counts, 2)

	top, err := s.store.MostDownloaded(ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(top, 1)
	s.Equal(report.ID, top[0].ID)
}
