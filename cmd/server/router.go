package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	audithandler "campaign/internal/audit/handler"
	cataloghandler "campaign/internal/catalog/handler"
	dispatchhandler "campaign/internal/dispatch/handler"
	engagementhandler "campaign/internal/engagement/handler"
	"campaign/internal/platform/capability"
	"campaign/internal/platform/config"
	"campaign/internal/platform/metrics"
	recipienthandler "campaign/internal/recipient/handler"
	splittesthandler "campaign/internal/splittest/handler"
	"campaign/pkg/platform/httputil"
	"campaign/pkg/platform/middleware/admin"
	"campaign/pkg/platform/middleware/auth"
	"campaign/pkg/platform/middleware/request"
	"campaign/pkg/platform/middleware/requesttime"
)

const (
	tokenIssuer   = "campaign"
	tokenAudience = "campaign-readers"
	healthTimeout = 2 * time.Second
)

func newRouter(cfg config.Config, a *app, in *infra, reg *metrics.Registry, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Use(requesttime.Middleware)

	r.Handle("/metrics", reg.Handler())
	r.Get("/healthz", healthHandler(in))

	catalog := cataloghandler.New(a.catalog, a.downloads, log)
	recipients := recipienthandler.New(a.recipients, log)
	tokens := capability.NewTokenService(cfg.Server.JWTSigningKey, tokenIssuer, tokenAudience)

	r.Group(func(r chi.Router) {
		r.Use(auth.Capabilities(tokens, log))
		catalog.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(cfg.Server.AdminToken, log))
		catalog.RegisterAdmin(r)
		recipients.RegisterAdmin(r)
		dispatchhandler.New(a.dispatch, log).Register(r)
		splittesthandler.New(a.splitTests, log).Register(r)
		audithandler.New(a.audit, log).Register(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(admin.RequireWebhookSecret(cfg.Server.WebhookSecret, log))
		recipients.RegisterWebhooks(r)
		engagementhandler.New(a.engagement, log).Register(r)
	})
	return r
}

type healthResponse struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Degraded bool              `json:"degraded,omitempty"`
}

// healthHandler reports 503 when any configured dependency fails its check.
func healthHandler(in *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		check := func(name string, err error) {
			if err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "unavailable"
				resp.Degraded = true
				return
			}
			resp.Checks[name] = "ok"
		}
		if in.db != nil {
			check("postgres", in.db.PingContext(ctx))
		}
		if in.redis != nil {
			check("redis", in.redis.Health(ctx))
		}
		if in.kafka != nil {
			check("kafka", in.kafka.Health(ctx))
		}

		status := http.StatusOK
		if resp.Degraded {
			status = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, status, resp)
	}
}
