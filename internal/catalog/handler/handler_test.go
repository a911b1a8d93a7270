package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign/internal/cache"
	"campaign/internal/cache/epoch"
	"campaign/internal/cache/provider/ristretto"
	"campaign/internal/catalog/models"
	"campaign/internal/catalog/service"
	"campaign/internal/catalog/store"
	"campaign/internal/platform/logger"
	id "campaign/pkg/domain"
	"campaign/pkg/requestcontext"
)

type stubDownloader struct {
	count int64
	err   error
	calls int
}

func (d *stubDownloader) RecordDownload(context.Context, id.DocumentID) (int64, error) {
	d.calls++
	if d.err != nil {
		return 0, d.err
	}
	d.count++
	return d.count, nil
}

type fixture struct {
	router     http.Handler
	svc        *service.Service
	downloader *stubDownloader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p, err := ristretto.New(ristretto.Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })

	svc, err := service.New(store.NewInMemoryStore(), cache.Backend{Provider: p, Epochs: epoch.NewLocal()})
	require.NoError(t, err)

	dl := &stubDownloader{}
	h := New(svc, dl, logger.Discard())
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if caps := req.Header.Get("X-Test-Caps"); caps != "" {
				req = req.WithContext(requestcontext.WithCapabilities(req.Context(), []string{caps}))
			}
			next.ServeHTTP(w, req)
		})
	})
	h.RegisterPublic(r)
	h.RegisterAdmin(r)
	return &fixture{router: r, svc: svc, downloader: dl}
}

func (f *fixture) do(method, path string, body any, caps string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caps != "" {
		req.Header.Set("X-Test-Caps", caps)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createDoc(t *testing.T, slug, tier string) models.Document {
	t.Helper()
	rec := f.do(http.MethodPost, "/admin/documents", map[string]any{
		"slug": slug, "title": slug, "category": "news", "tier": tier, "body": "hello " + slug,
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var doc models.Document
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	return doc
}

func TestGetDocumentRespectsTier(t *testing.T) {
	f := newFixture(t)
	doc := f.createDoc(t, "members-only", "restricted")

	rec := f.do(http.MethodGet, "/documents/"+doc.ID.String(), nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "error_description")

	rec = f.do(http.MethodGet, "/documents/"+doc.ID.String(), nil, "subscriber")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetDocumentInvalidID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/documents/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadRecordsCount(t *testing.T) {
	f := newFixture(t)
	doc := f.createDoc(t, "guide", "public")

	rec := f.do(http.MethodGet, "/documents/"+doc.ID.String()+"/download", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello guide", rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get("X-Download-Count"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "guide.txt")
}

func TestDownloadServedWhenCounterFails(t *testing.T) {
	f := newFixture(t)
	doc := f.createDoc(t, "guide", "public")
	f.downloader.err = errors.New("counter down")

	rec := f.do(http.MethodGet, "/documents/"+doc.ID.String()+"/download", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello guide", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Download-Count"))
}

func TestDownloadDeniedDoesNotCount(t *testing.T) {
	f := newFixture(t)
	doc := f.createDoc(t, "board-minutes", "private")

	rec := f.do(http.MethodGet, "/documents/"+doc.ID.String()+"/download", nil, "editor")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, f.downloader.calls)
}

func TestSetTierThenRead(t *testing.T) {
	f := newFixture(t)
	doc := f.createDoc(t, "plan", "public")

	rec := f.do(http.MethodGet, "/documents/"+doc.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPut, "/admin/documents/"+doc.ID.String()+"/tier", map[string]string{"tier": "private"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/documents/"+doc.ID.String(), nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateRejectsUnknownFields(t *testing.T) {
	f := newFixture(t)
	doc := f.createDoc(t, "strict", "public")

	rec := f.do(http.MethodPatch, "/admin/documents/"+doc.ID.String(), map[string]string{"tier": "private"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEndpoints(t *testing.T) {
	f := newFixture(t)
	f.createDoc(t, "one", "public")
	f.createDoc(t, "two", "restricted")

	rec := f.do(http.MethodGet, "/documents/categories", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var counts CategoryCountsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&counts))
	assert.Equal(t, []models.CategoryCount{{Category: "news", Count: 1}}, counts.Categories)

	rec = f.do(http.MethodGet, "/documents/popular?n=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/documents/featured?n=500", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodGet, "/documents/popular", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var popular DocumentListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&popular))
	assert.Len(t, popular.Documents, 1)
}

func TestInvalidateGroup(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/admin/cache/groups/catalog/invalidate", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
