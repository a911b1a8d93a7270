// Package handler serves the operator audit trail.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	dErrors "campaign/pkg/domain-errors"
	"campaign/pkg/platform/audit"
	"campaign/pkg/platform/httputil"
	"campaign/pkg/requestcontext"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Reader is the read side of the audit publisher.
type Reader interface {
	List(ctx context.Context, subject string) ([]audit.Event, error)
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

type Handler struct {
	reader Reader
	logger *slog.Logger
}

func New(reader Reader, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, logger: logger}
}

// Register mounts the trail under /admin. The caller applies the admin token
// middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/audit", h.HandleList)
}

// HandleList returns the events for ?subject= (e.g. "document:<id>") in
// the order they happened, or the newest ?limit= events when no subject is
// given.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		events []audit.Event
		err    error
	)
	if subject := r.URL.Query().Get("subject"); subject != "" {
		events, err = h.reader.List(ctx, subject)
	} else {
		limit, perr := parseLimit(r.URL.Query().Get("limit"))
		if perr != nil {
			httputil.WriteError(w, perr)
			return
		}
		events, err = h.reader.Recent(ctx, limit)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "audit trail read failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeStoreFailure, "failed to read audit trail"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTrailResponse(events))
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxLimit {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 500")
	}
	return n, nil
}
