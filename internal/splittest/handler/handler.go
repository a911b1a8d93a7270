package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campaign/internal/splittest/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/httputil"
	"campaign/pkg/requestcontext"
)

type Service interface {
	CreateTest(ctx context.Context, req models.CreateRequest) (*models.SplitTest, error)
	Decide(ctx context.Context, testID id.SplitTestID) (*models.Decision, error)
	Get(ctx context.Context, testID id.SplitTestID) (*models.SplitTest, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/split-tests", h.HandleCreate)
	r.Get("/admin/split-tests/{id}", h.HandleGet)
	r.Post("/admin/split-tests/{id}/decide", h.HandleDecide)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.service.CreateTest(ctx, req)
	if err != nil {
		h.fail(ctx, w, "create split test failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	testID, err := id.ParseSplitTestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.service.Get(r.Context(), testID)
	if err != nil {
		h.fail(r.Context(), w, "get split test failed", err, "test_id", testID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

// HandleDecide answers 409 for both not-ready and already-decided tests;
// the error code in the body tells them apart.
func (h *Handler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	testID, err := id.ParseSplitTestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	d, err := h.service.Decide(r.Context(), testID)
	if err != nil {
		h.fail(r.Context(), w, "decide split test failed", err, "test_id", testID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, args ...any) {
	args = append(args, "request_id", requestcontext.RequestID(ctx), "error", err)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeStoreFailure:
		h.logger.ErrorContext(ctx, msg, args...)
	default:
		h.logger.InfoContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}
