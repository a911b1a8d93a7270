package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"campaign/internal/access"
	"campaign/internal/cache"
	"campaign/internal/cache/epoch"
	"campaign/internal/cache/provider/ristretto"
	"campaign/internal/catalog/models"
	"campaign/internal/catalog/store"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/audit"
	"campaign/pkg/platform/audit/publisher"
	auditmemory "campaign/pkg/platform/audit/store/memory"
)

// countingStore records how often the backing store is read so tests can
// tell cache hits from recomputes.
type countingStore struct {
	*store.InMemoryStore
	finds    atomic.Int32
	featured atomic.Int32
	counts   atomic.Int32
}

func (c *countingStore) FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	c.finds.Add(1)
	return c.InMemoryStore.FindByID(ctx, docID)
}

func (c *countingStore) ListFeatured(ctx context.Context, maxTier access.Tier, n int) ([]models.Document, error) {
	c.featured.Add(1)
	return c.InMemoryStore.ListFeatured(ctx, maxTier, n)
}

func (c *countingStore) CategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	c.counts.Add(1)
	return c.InMemoryStore.CategoryCounts(ctx)
}

type failingBumps struct {
	epoch.Store
	fail atomic.Bool
}

func (f *failingBumps) Bump(ctx context.Context, group string) (uint64, error) {
	if f.fail.Load() {
		return 0, errors.New("epoch store down")
	}
	return f.Store.Bump(ctx, group)
}

type CatalogServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *countingStore
	epochs  *failingBumps
	audit   *auditmemory.InMemoryStore
	service *Service
}

func TestCatalogServiceSuite(t *testing.T) {
	suite.Run(t, new(CatalogServiceSuite))
}

func (s *CatalogServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = &countingStore{InMemoryStore: store.NewInMemoryStore()}
	s.epochs = &failingBumps{Store: epoch.NewLocal()}
	s.audit = auditmemory.NewInMemoryStore()

	p, err := ristretto.New(ristretto.Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64})
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = p.Close(context.Background()) })

	svc, err := New(s.store, cache.Backend{Provider: p, Epochs: s.epochs},
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
		WithTTLs(time.Minute, time.Minute),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *CatalogServiceSuite) create(slug, category, tier string, featured bool, rank int) *models.Document {
	doc, err := s.service.CreateDocument(s.ctx, models.CreateDocumentRequest{
		Slug: slug, Title: slug, Category: category, Tier: tier,
		Featured: featured, FeaturedRank: rank,
	})
	s.Require().NoError(err)
	return doc
}

var (
	anonymous  = access.NewCapabilities()
	subscriber = access.NewCapabilities(access.CapabilitySubscriber)
	admin      = access.NewCapabilities(access.CapabilityAdministrator)
)

// =============================================================================
// GetDocument
// =============================================================================

func (s *CatalogServiceSuite) TestGetDocument() {
	pub := s.create("pub", "news", "public", false, 0)
	res := s.create("res", "news", "restricted", false, 0)
	priv := s.create("priv", "news", "private", false, 0)

	s.Run("public is readable by anyone", func() {
		doc, err := s.service.GetDocument(s.ctx, pub.ID, anonymous)
		s.Require().NoError(err)
		s.Equal("pub", doc.Slug)
	})

	s.Run("restricted requires a restricted capability", func() {
		_, err := s.service.GetDocument(s.ctx, res.ID, anonymous)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		doc, err := s.service.GetDocument(s.ctx, res.ID, subscriber)
		s.Require().NoError(err)
		s.Equal(res.ID, doc.ID)
	})

	s.Run("private requires administrator", func() {
		_, err := s.service.GetDocument(s.ctx, priv.ID, subscriber)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = s.service.GetDocument(s.ctx, priv.ID, admin)
		s.NoError(err)
	})

	// Justification: a caller below the top tier must not be able to tell a
	// missing document from one it may not read.
	s.Run("missing document is forbidden unless caller reads every tier", func() {
		missing := id.NewDocumentID()
		_, err := s.service.GetDocument(s.ctx, missing, subscriber)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = s.service.GetDocument(s.ctx, missing, admin)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *CatalogServiceSuite) TestGetDocumentIsCached() {
	doc := s.create("cached", "news", "public", false, 0)

	for range 3 {
		_, err := s.service.GetDocument(s.ctx, doc.ID, anonymous)
		s.Require().NoError(err)
	}
	s.Equal(int32(1), s.store.finds.Load())
}

// =============================================================================
// Tier changes
// =============================================================================

// Justification: once SetTier returns, no read may serve the document under
// its previous, wider tier.
func (s *CatalogServiceSuite) TestTighteningTierTakesEffectImmediately() {
	doc := s.create("secret-plan", "news", "public", false, 0)

	_, err := s.service.GetDocument(s.ctx, doc.ID, anonymous)
	s.Require().NoError(err)

	updated, err := s.service.SetTier(s.ctx, doc.ID, "private")
	s.Require().NoError(err)
	s.Equal(int64(2), updated.Version)

	_, err = s.service.GetDocument(s.ctx, doc.ID, anonymous)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	got, err := s.service.GetDocument(s.ctx, doc.ID, admin)
	s.Require().NoError(err)
	s.Equal(access.TierPrivate, got.Tier)
}

// A cached featured list must drop a document as soon as its tier tightens
// past what the caller may read.
func (s *CatalogServiceSuite) TestTighteningTierDropsDocumentFromCachedFeaturedList() {
	launch := s.create("launch", "news", "public", true, 1)
	s.create("roadmap", "news", "public", true, 2)

	before, err := s.service.ListFeatured(s.ctx, 10, anonymous)
	s.Require().NoError(err)
	s.Equal([]string{"launch", "roadmap"}, slugs(before))

	_, err = s.service.ListFeatured(s.ctx, 10, anonymous)
	s.Require().NoError(err)
	s.Equal(int32(1), s.store.featured.Load(), "second read is served from cache")

	_, err = s.service.SetTier(s.ctx, launch.ID, "private")
	s.Require().NoError(err)

	after, err := s.service.ListFeatured(s.ctx, 10, anonymous)
	s.Require().NoError(err)
	s.Equal([]string{"roadmap"}, slugs(after))

	forAdmin, err := s.service.ListFeatured(s.ctx, 10, admin)
	s.Require().NoError(err)
	s.Equal([]string{"launch", "roadmap"}, slugs(forAdmin))
}

func (s *CatalogServiceSuite) TestSetTierIsIdempotent() {
	doc := s.create("same", "news", "restricted", false, 0)

	first, err := s.service.SetTier(s.ctx, doc.ID, "private")
	s.Require().NoError(err)
	second, err := s.service.SetTier(s.ctx, doc.ID, "private")
	s.Require().NoError(err)

	s.Equal(first.Version, second.Version)
	events, err := s.audit.ListBySubject(s.ctx, "document:"+doc.ID.String())
	s.Require().NoError(err)
	tierChanges := 0
	for _, e := range events {
		if e.Action == string(audit.EventDocumentTierChanged) {
			tierChanges++
		}
	}
	s.Equal(1, tierChanges)
}

func (s *CatalogServiceSuite) TestSetTierRejectsUnknownTier() {
	doc := s.create("unknown-tier", "news", "public", false, 0)
	_, err := s.service.SetTier(s.ctx, doc.ID, "secret")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CatalogServiceSuite) TestSetTierMissingDocument() {
	_, err := s.service.SetTier(s.ctx, id.NewDocumentID(), "public")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// =============================================================================
// Aggregates
// =============================================================================

func (s *CatalogServiceSuite) TestListFeaturedFiltersByTier() {
	s.create("f-pub", "news", "public", true, 2)
	s.create("f-res", "news", "restricted", true, 1)
	s.create("f-priv", "news", "private", true, 0)
	s.create("not-featured", "news", "public", false, 0)

	docs, err := s.service.ListFeatured(s.ctx, 10, anonymous)
	s.Require().NoError(err)
	s.Equal([]string{"f-pub"}, slugs(docs))

	docs, err = s.service.ListFeatured(s.ctx, 10, subscriber)
	s.Require().NoError(err)
	s.Equal([]string{"f-res", "f-pub"}, slugs(docs))

	docs, err = s.service.ListFeatured(s.ctx, 2, admin)
	s.Require().NoError(err)
	s.Equal([]string{"f-priv", "f-res"}, slugs(docs))
}

func (s *CatalogServiceSuite) TestListFeaturedValidatesLimit() {
	_, err := s.service.ListFeatured(s.ctx, 0, anonymous)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.service.ListFeatured(s.ctx, maxListSize+1, anonymous)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CatalogServiceSuite) TestCategoryCountsRecomputeAfterMutation() {
	s.create("a", "news", "public", false, 0)
	s.create("b", "guides", "public", false, 0)
	s.create("c", "news", "private", false, 0)

	counts, err := s.service.CategoryCounts(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.CategoryCount{{Category: "guides", Count: 1}, {Category: "news", Count: 1}}, counts)

	_, err = s.service.CategoryCounts(s.ctx)
	s.Require().NoError(err)
	s.Equal(int32(1), s.store.counts.Load())

	s.create("d", "news", "public", false, 0)
	counts, err = s.service.CategoryCounts(s.ctx)
	s.Require().NoError(err)
	s.Equal(int32(2), s.store.counts.Load())
	s.Equal([]models.CategoryCount{{Category: "guides", Count: 1}, {Category: "news", Count: 2}}, counts)
}

func (s *CatalogServiceSuite) TestMostDownloaded() {
	a := s.create("a", "news", "public", false, 0)
	b := s.create("b", "news", "public", false, 0)
	s.create("hidden", "news", "private", false, 0)

	_, err := s.store.IncrementDownloads(s.ctx, b.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.service.InvalidateCache(s.ctx, GroupCatalog))

	docs, err := s.service.MostDownloaded(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal([]string{"b", "a"}, slugs(docs))
	s.Equal(a.ID, docs[1].ID)
}

// =============================================================================
// Mutations
// =============================================================================

func (s *CatalogServiceSuite) TestCreateDocumentDuplicateSlug() {
	s.create("dup", "news", "public", false, 0)
	_, err := s.service.CreateDocument(s.ctx, models.CreateDocumentRequest{
		Slug: "DUP", Title: "again", Category: "news",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *CatalogServiceSuite) TestUpdateDocumentInvalidatesCachedCopy() {
	doc := s.create("edit-me", "news", "public", false, 0)
	_, err := s.service.GetDocument(s.ctx, doc.ID, anonymous)
	s.Require().NoError(err)

	title := "Edited"
	updated, err := s.service.UpdateDocument(s.ctx, doc.ID, models.UpdateDocumentRequest{Title: &title})
	s.Require().NoError(err)
	s.Equal(int64(2), updated.Version)

	got, err := s.service.GetDocument(s.ctx, doc.ID, anonymous)
	s.Require().NoError(err)
	s.Equal("Edited", got.Title)
}

func (s *CatalogServiceSuite) TestUpdateWithoutChangesKeepsVersion() {
	doc := s.create("noop", "news", "public", false, 0)
	title := doc.Title
	updated, err := s.service.UpdateDocument(s.ctx, doc.ID, models.UpdateDocumentRequest{Title: &title})
	s.Require().NoError(err)
	s.Equal(int64(1), updated.Version)
}

func (s *CatalogServiceSuite) TestInvalidationFailureIsStoreFailure() {
	doc := s.create("fragile", "news", "public", false, 0)
	s.epochs.fail.Store(true)

	_, err := s.service.SetTier(s.ctx, doc.ID, "restricted")
	s.True(dErrors.HasCode(err, dErrors.CodeStoreFailure))

	err = s.service.InvalidateCache(s.ctx, GroupCatalog)
	s.True(dErrors.HasCode(err, dErrors.CodeStoreFailure))
}

func (s *CatalogServiceSuite) TestInvalidateCacheRequiresGroup() {
	err := s.service.InvalidateCache(s.ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func slugs(docs []models.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Slug)
	}
	return out
}
