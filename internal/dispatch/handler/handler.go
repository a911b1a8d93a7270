package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"campaign/internal/dispatch/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/httputil"
	"campaign/pkg/requestcontext"
)

type Service interface {
	Submit(ctx context.Context, recipients []id.RecipientID, chunkSize int, payload models.Payload) (id.JobID, error)
	Advance(ctx context.Context, jobID id.JobID) (models.Progress, error)
	Cancel(ctx context.Context, jobID id.JobID) error
	Get(ctx context.Context, jobID id.JobID) (*models.Job, error)
	ListActive(ctx context.Context, limit int) ([]models.Job, error)
	Deliveries(ctx context.Context, jobID id.JobID) ([]models.Delivery, error)
}

const activeListLimit = 100

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the operator endpoints; the caller applies admin auth.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/jobs", h.HandleSubmit)
	r.Get("/admin/jobs", h.HandleListActive)
	r.Get("/admin/jobs/{id}", h.HandleGet)
	r.Get("/admin/jobs/{id}/deliveries", h.HandleDeliveries)
	r.Post("/admin/jobs/{id}/advance", h.HandleAdvance)
	r.Post("/admin/jobs/{id}/cancel", h.HandleCancel)
}

type SubmitResponse struct {
	JobID id.JobID `json:"job_id"`
}

type JobListResponse struct {
	Jobs []models.Job `json:"jobs"`
}

type DeliveryListResponse struct {
	Deliveries []models.Delivery `json:"deliveries"`
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.SubmitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	jobID, err := h.service.Submit(ctx, req.RecipientIDs, req.ChunkSize, req.Payload)
	if err != nil {
		h.fail(ctx, w, "submit job failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, SubmitResponse{JobID: jobID})
}

func (h *Handler) HandleListActive(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.ListActive(r.Context(), activeListLimit)
	if err != nil {
		h.fail(r.Context(), w, "list active jobs failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, JobListResponse{Jobs: jobs})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return
	}
	job, err := h.service.Get(r.Context(), jobID)
	if err != nil {
		h.fail(r.Context(), w, "get job failed", err, "job_id", jobID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

func (h *Handler) HandleDeliveries(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return
	}
	out, err := h.service.Deliveries(r.Context(), jobID)
	if err != nil {
		h.fail(r.Context(), w, "list deliveries failed", err, "job_id", jobID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DeliveryListResponse{Deliveries: out})
}

func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Advance(r.Context(), jobID)
	if err != nil {
		h.fail(r.Context(), w, "advance job failed", err, "job_id", jobID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseJobID(w, r)
	if !ok {
		return
	}
	if err := h.service.Cancel(r.Context(), jobID); err != nil {
		h.fail(r.Context(), w, "cancel job failed", err, "job_id", jobID)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, args ...any) {
	args = append(args, "request_id", requestcontext.RequestID(ctx), "error", err)
	if code := dErrors.CodeOf(err); code == dErrors.CodeInternal || code == dErrors.CodeStoreFailure {
		h.logger.ErrorContext(ctx, msg, args...)
	} else {
		h.logger.InfoContext(ctx, msg, args...)
	}
	httputil.WriteError(w, err)
}

func parseJobID(w http.ResponseWriter, r *http.Request) (id.JobID, bool) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.JobID{}, false
	}
	return jobID, true
}
