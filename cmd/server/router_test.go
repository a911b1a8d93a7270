package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"campaign/internal/access"
	audithandler "campaign/internal/audit/handler"
	"campaign/internal/catalog/models"
	"campaign/internal/platform/capability"
	"campaign/internal/platform/config"
	"campaign/internal/platform/metrics"
	"campaign/pkg/platform/middleware/admin"
	"campaign/pkg/testutil"
)

const (
	testAdminToken    = "admin-test-token"
	testWebhookSecret = "webhook-test-secret"
	testSigningKey    = "router-test-signing-key"
)

// RouterSuite drives the fully wired in-process server: no database, Redis
// or Kafka, the ristretto cache and the log transport.
type RouterSuite struct {
	suite.Suite
	services *app
	router   http.Handler
	tokens   *capability.TokenService
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	cfg := config.Config{
		Server: config.Server{
			AdminToken:    testAdminToken,
			JWTSigningKey: testSigningKey,
			WebhookSecret: testWebhookSecret,
		},
		Cache: config.CacheConfig{
			Provider:     "ristretto",
			DocumentTTL:  time.Minute,
			AggregateTTL: time.Minute,
			MaxCost:      1 << 20,
			NumCounters:  1000,
		},
		Scheduler: config.SchedulerConfig{
			Interval:         time.Second,
			MinChunkInterval: time.Minute,
			JobsPerTick:      5,
		},
		Breaker: config.BreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 1,
			Cooldown:         time.Second,
		},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := metrics.New()
	conns := &infra{}

	services, err := buildApp(cfg, conns, reg, log)
	s.Require().NoError(err)
	s.services = services
	s.router = newRouter(cfg, services, conns, reg, log)
	s.tokens = capability.NewTokenService(testSigningKey, tokenIssuer, tokenAudience)
}

func (s *RouterSuite) TearDownTest() {
	s.services.close()
}

func (s *RouterSuite) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	return testutil.Serve(s.router, testutil.Request(s.T(), method, path, body, headers))
}

func (s *RouterSuite) createDocument(slug, tier string) models.Document {
	resp := s.do(http.MethodPost, "/admin/documents", models.CreateDocumentRequest{
		Slug:     slug,
		Title:    "Quarterly report",
		Category: "reports",
		Tier:     tier,
		Body:     "figures",
	}, map[string]string{admin.HeaderAdminToken: testAdminToken})
	s.Require().Equal(http.StatusCreated, resp.Code, resp.Body.String())
	return testutil.Decode[models.Document](s.T(), resp)
}

// =============================================================================
// Surface
// =============================================================================

func (s *RouterSuite) TestHealthWithoutExternalDependencies() {
	resp := s.do(http.MethodGet, "/healthz", nil, nil)
	s.Equal(http.StatusOK, resp.Code)

	body := testutil.Decode[healthResponse](s.T(), resp)
	s.Equal("ok", body.Status)
	s.Empty(body.Checks)
}

func (s *RouterSuite) TestMetricsEndpoint() {
	resp := s.do(http.MethodGet, "/metrics", nil, nil)
	s.Equal(http.StatusOK, resp.Code)
}

// =============================================================================
// Guards
// =============================================================================

func (s *RouterSuite) TestAdminRoutesRequireToken() {
	body := models.CreateDocumentRequest{Slug: "no-token", Title: "t", Category: "c"}

	resp := s.do(http.MethodPost, "/admin/documents", body, nil)
	testutil.AssertError(s.T(), resp, http.StatusUnauthorized, "unauthorized")

	resp = s.do(http.MethodPost, "/admin/documents", body, map[string]string{admin.HeaderAdminToken: "wrong"})
	s.Equal(http.StatusUnauthorized, resp.Code)
}

func (s *RouterSuite) TestWebhookRoutesRequireSecret() {
	path := "/engagement/2b7c4a4e-7d4e-4f3a-9d1e-2f6c1f0a9b11/A/6a0f3c9e-1b2d-4e5f-8a7b-9c0d1e2f3a4b/open"

	resp := s.do(http.MethodPost, path, nil, nil)
	s.Equal(http.StatusUnauthorized, resp.Code)

	resp = s.do(http.MethodPost, path, nil, map[string]string{admin.HeaderWebhookSecret: testWebhookSecret})
	s.Equal(http.StatusNoContent, resp.Code)
}

func (s *RouterSuite) TestMalformedBearerRejected() {
	doc := s.createDocument("bearer-check", string(access.TierPublic))

	resp := s.do(http.MethodGet, "/documents/"+doc.ID.String(), nil, map[string]string{"Authorization": "Token abc"})
	s.Equal(http.StatusUnauthorized, resp.Code)
}

// =============================================================================
// Tiered reads through the full stack
// =============================================================================

func (s *RouterSuite) TestAnonymousReadsPublicDocument() {
	doc := s.createDocument("public-report", string(access.TierPublic))

	resp := s.do(http.MethodGet, "/documents/"+doc.ID.String(), nil, nil)
	s.Require().Equal(http.StatusOK, resp.Code)

	got := testutil.Decode[models.Document](s.T(), resp)
	s.Equal(doc.ID, got.ID)
	s.Equal("public-report", got.Slug)
}

func (s *RouterSuite) TestRestrictedDocumentNeedsSubscriberToken() {
	doc := s.createDocument("member-report", string(access.TierRestricted))

	resp := s.do(http.MethodGet, "/documents/"+doc.ID.String(), nil, nil)
	testutil.AssertError(s.T(), resp, http.StatusForbidden, "forbidden")

	token, err := s.tokens.Issue("reader-1", []string{string(access.CapabilitySubscriber)}, time.Minute)
	s.Require().NoError(err)

	resp = s.do(http.MethodGet, "/documents/"+doc.ID.String(), nil, map[string]string{"Authorization": "Bearer " + token})
	s.Equal(http.StatusOK, resp.Code)
}

func (s *RouterSuite) TestDownloadCountsThroughTracker() {
	doc := s.createDocument("downloadable", string(access.TierPublic))

	resp := s.do(http.MethodGet, "/documents/"+doc.ID.String()+"/download", nil, nil)
	s.Require().Equal(http.StatusOK, resp.Code)

	resp = s.do(http.MethodGet, "/documents/"+doc.ID.String(), nil, nil)
	s.Require().Equal(http.StatusOK, resp.Code)

	got := testutil.Decode[models.Document](s.T(), resp)
	s.EqualValues(1, got.DownloadCount)
}

func (s *RouterSuite) TestMalformedDocumentIDRejected() {
	resp := s.do(http.MethodGet, "/documents/not-a-uuid", nil, nil)
	testutil.AssertError(s.T(), resp, http.StatusBadRequest, "invalid_input")
}

func (s *RouterSuite) TestAuditTrailRecordsDocumentCreation() {
	doc := s.createDocument("audited", string(access.TierPublic))
	s.services.audit.Close()

	resp := s.do(http.MethodGet, "/admin/audit?subject=document:"+doc.ID.String(), nil,
		map[string]string{admin.HeaderAdminToken: testAdminToken})
	s.Require().Equal(http.StatusOK, resp.Code)

	trail := testutil.Decode[audithandler.TrailResponse](s.T(), resp)
	s.Require().Equal(1, trail.Total)
	s.Equal("document_created", trail.Events[0].Action)
}
