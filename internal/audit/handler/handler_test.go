package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaign/internal/platform/logger"
	"campaign/pkg/platform/audit"
	"campaign/pkg/platform/audit/publisher"
	"campaign/pkg/platform/audit/store/memory"
	"campaign/pkg/testutil"
)

func newRouter(t *testing.T, reader Reader) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	New(reader, logger.Discard()).Register(r)
	return r
}

func seeded(t *testing.T) *publisher.Publisher {
	t.Helper()
	pub := publisher.NewPublisher(memory.NewInMemoryStore())
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, e := range []audit.Event{
		{Action: string(audit.EventDocumentCreated), Subject: "document:d-1"},
		{Action: string(audit.EventDocumentTierChanged), Subject: "document:d-1", ActorID: "editor-1"},
		{Action: string(audit.EventJobSubmitted), Subject: "job:j-1"},
	} {
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, pub.Emit(context.Background(), e))
	}
	return pub
}

func TestListBySubject(t *testing.T) {
	router := newRouter(t, seeded(t))

	rr := testutil.Serve(router, testutil.Request(t, http.MethodGet, "/admin/audit?subject=document:d-1", nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	trail := testutil.Decode[TrailResponse](t, rr)
	require.Equal(t, 2, trail.Total)
	assert.Equal(t, string(audit.EventDocumentCreated), trail.Events[0].Action)
	assert.Equal(t, "security", trail.Events[1].Category)
	assert.Equal(t, "editor-1", trail.Events[1].ActorID)
}

func TestListRecentNewestFirst(t *testing.T) {
	router := newRouter(t, seeded(t))

	rr := testutil.Serve(router, testutil.Request(t, http.MethodGet, "/admin/audit?limit=2", nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	trail := testutil.Decode[TrailResponse](t, rr)
	require.Len(t, trail.Events, 2)
	assert.Equal(t, "job:j-1", trail.Events[0].Subject)
	assert.Equal(t, string(audit.EventDocumentTierChanged), trail.Events[1].Action)
}

func TestListRejectsBadLimit(t *testing.T) {
	router := newRouter(t, seeded(t))
	for _, limit := range []string{"0", "-1", "501", "ten"} {
		rr := testutil.Serve(router, testutil.Request(t, http.MethodGet, "/admin/audit?limit="+limit, nil, nil))
		testutil.AssertError(t, rr, http.StatusBadRequest, "bad_request")
	}
}

type brokenReader struct{}

func (brokenReader) List(context.Context, string) ([]audit.Event, error) {
	return nil, errors.New("connection reset")
}

func (brokenReader) Recent(context.Context, int) ([]audit.Event, error) {
	return nil, errors.New("connection reset")
}

func TestStoreFailureIsOpaque(t *testing.T) {
	router := newRouter(t, brokenReader{})

	rr := testutil.Serve(router, testutil.Request(t, http.MethodGet, "/admin/audit", nil, nil))
	testutil.AssertError(t, rr, http.StatusServiceUnavailable, "store_failure")
	assert.NotContains(t, rr.Body.String(), "connection reset")
}
