package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campaign/internal/engagement/models"
	smodels "campaign/internal/splittest/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/httputil"
	"campaign/pkg/requestcontext"
)

type Reporter interface {
	Record(ctx context.Context, testID id.SplitTestID, variant smodels.Variant, recipientID id.RecipientID, kind models.Kind) error
}

type Handler struct {
	reporter Reporter
	logger   *slog.Logger
}

func New(reporter Reporter, logger *slog.Logger) *Handler {
	return &Handler{reporter: reporter, logger: logger}
}

// Register mounts the tracking callback. The caller guards it with the
// shared webhook secret.
func (h *Handler) Register(r chi.Router) {
	r.Post("/engagement/{test}/{variant}/{recipient}/{kind}", h.HandleRecord)
}

func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	testID, err := id.ParseSplitTestID(chi.URLParam(r, "test"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	variant, err := models.ParseVariant(chi.URLParam(r, "variant"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	recipientID, err := id.ParseRecipientID(chi.URLParam(r, "recipient"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := models.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.reporter.Record(ctx, testID, variant, recipientID, kind); err != nil {
		h.logger.WarnContext(ctx, "engagement not recorded",
			"request_id", requestcontext.RequestID(ctx),
			"test_id", testID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
