package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campaign/internal/recipient/models"
	id "campaign/pkg/domain"
	"campaign/pkg/platform/httputil"
	"campaign/pkg/requestcontext"
)

type Service interface {
	Subscribe(ctx context.Context, req models.SubscribeRequest) (*models.Recipient, error)
	Verify(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error)
	OptOut(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error)
	Get(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterWebhooks mounts the callbacks from the mail subsystem. The caller
// guards them with the shared webhook secret.
func (h *Handler) RegisterWebhooks(r chi.Router) {
	r.Post("/webhooks/recipients", h.HandleSubscribe)
	r.Post("/webhooks/recipients/{id}/verify", h.lifecycle("verify", h.service.Verify))
	r.Post("/webhooks/recipients/{id}/opt-out", h.lifecycle("opt-out", h.service.OptOut))
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/recipients", h.HandleSubscribe)
	r.Get("/admin/recipients/{id}", h.HandleGet)
}

func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.SubscribeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.Subscribe(ctx, req)
	if err != nil {
		h.logger.InfoContext(ctx, "subscribe rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	recipientID, err := id.ParseRecipientID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.service.Get(r.Context(), recipientID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

type lifecycleFunc func(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error)

func (h *Handler) lifecycle(action string, fn lifecycleFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		recipientID, err := id.ParseRecipientID(chi.URLParam(r, "id"))
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		rec, err := fn(ctx, recipientID)
		if err != nil {
			h.logger.WarnContext(ctx, "recipient webhook failed",
				"request_id", requestcontext.RequestID(ctx),
				"action", action,
				"recipient_id", recipientID,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, rec)
	}
}
