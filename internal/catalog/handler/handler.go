package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"campaign/internal/access"
	"campaign/internal/catalog/models"
	id "campaign/pkg/domain"
	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/httputil"
	"campaign/pkg/requestcontext"
)

// Service is the catalog surface used by the handler.
type Service interface {
	GetDocument(ctx context.Context, docID id.DocumentID, caps access.Capabilities) (*models.Document, error)
	ListFeatured(ctx context.Context, n int, caps access.Capabilities) ([]models.Document, error)
	CategoryCounts(ctx context.Context) ([]models.CategoryCount, error)
	MostDownloaded(ctx context.Context, n int) ([]models.Document, error)
	CreateDocument(ctx context.Context, req models.CreateDocumentRequest) (*models.Document, error)
	UpdateDocument(ctx context.Context, docID id.DocumentID, req models.UpdateDocumentRequest) (*models.Document, error)
	SetTier(ctx context.Context, docID id.DocumentID, tier string) (*models.Document, error)
	InvalidateCache(ctx context.Context, group string) error
}

// Downloader counts a download of a document.
type Downloader interface {
	RecordDownload(ctx context.Context, docID id.DocumentID) (int64, error)
}

const defaultListSize = 10

// Handler exposes catalog reads publicly and mutations to operators.
type Handler struct {
	service    Service
	downloader Downloader
	logger     *slog.Logger
}

func New(service Service, downloader Downloader, logger *slog.Logger) *Handler {
	return &Handler{service: service, downloader: downloader, logger: logger}
}

// RegisterPublic mounts the read endpoints. Capabilities come from the
// request context, populated by the bearer token middleware.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/documents/featured", h.HandleListFeatured)
	r.Get("/documents/categories", h.HandleCategoryCounts)
	r.Get("/documents/popular", h.HandleMostDownloaded)
	r.Get("/documents/{id}", h.HandleGetDocument)
	r.Get("/documents/{id}/download", h.HandleDownload)
}

// RegisterAdmin mounts the mutation endpoints. The caller guards the router
// with the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/documents", h.HandleCreate)
	r.Patch("/admin/documents/{id}", h.HandleUpdate)
	r.Put("/admin/documents/{id}/tier", h.HandleSetTier)
	r.Post("/admin/cache/groups/{group}/invalidate", h.HandleInvalidate)
}

func (h *Handler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.GetDocument(ctx, docID, callerCaps(ctx))
	if err != nil {
		h.logFailure(ctx, "get document failed", err, "document_id", docID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

// HandleDownload serves the document body as an attachment. A failure to
// count the download is logged; the document is still served.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.GetDocument(ctx, docID, callerCaps(ctx))
	if err != nil {
		h.logFailure(ctx, "download denied", err, "document_id", docID)
		httputil.WriteError(w, err)
		return
	}

	count, err := h.downloader.RecordDownload(ctx, docID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to record download",
			"request_id", requestcontext.RequestID(ctx),
			"document_id", docID,
			"error", err,
		)
	} else {
		w.Header().Set("X-Download-Count", strconv.FormatInt(count, 10))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Slug+`.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc.Body))
}

func (h *Handler) HandleListFeatured(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := limitParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docs, err := h.service.ListFeatured(ctx, n, callerCaps(ctx))
	if err != nil {
		h.logFailure(ctx, "list featured failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DocumentListResponse{Documents: docs})
}

func (h *Handler) HandleCategoryCounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts, err := h.service.CategoryCounts(ctx)
	if err != nil {
		h.logFailure(ctx, "category counts failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CategoryCountsResponse{Categories: counts})
}

func (h *Handler) HandleMostDownloaded(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	n, err := limitParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docs, err := h.service.MostDownloaded(ctx, n)
	if err != nil {
		h.logFailure(ctx, "most downloaded failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DocumentListResponse{Documents: docs})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateDocumentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.CreateDocument(ctx, req)
	if err != nil {
		h.logFailure(ctx, "create document failed", err, "slug", req.Slug)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, doc)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.UpdateDocumentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.UpdateDocument(ctx, docID, req)
	if err != nil {
		h.logFailure(ctx, "update document failed", err, "document_id", docID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) HandleSetTier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := id.ParseDocumentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.SetTierRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.service.SetTier(ctx, docID, req.Tier)
	if err != nil {
		h.logFailure(ctx, "set tier failed", err, "document_id", docID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	group := chi.URLParam(r, "group")
	if err := h.service.InvalidateCache(ctx, group); err != nil {
		h.logFailure(ctx, "cache invalidation failed", err, "group", group)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "request_id", requestcontext.RequestID(ctx), "error", err)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeStoreFailure:
		h.logger.ErrorContext(ctx, msg, args...)
	default:
		h.logger.DebugContext(ctx, msg, args...)
	}
}

func callerCaps(ctx context.Context) access.Capabilities {
	return access.ParseCapabilities(requestcontext.Capabilities(ctx))
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("n")
	if raw == "" {
		return defaultListSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "n must be an integer")
	}
	return n, nil
}
