// Package admin guards operator and webhook routes with shared secrets.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	request "campaign/pkg/platform/middleware/request"
)

const (
	HeaderAdminToken    = "X-Admin-Token"
	HeaderWebhookSecret = "X-Webhook-Secret"
)

// RequireAdminToken rejects requests whose X-Admin-Token does not match.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return RequireSecretHeader(HeaderAdminToken, expectedToken, "admin token required", logger)
}

// RequireWebhookSecret guards inbound webhooks from the mail subsystem.
func RequireWebhookSecret(expectedSecret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return RequireSecretHeader(HeaderWebhookSecret, expectedSecret, "webhook secret required", logger)
}

// RequireSecretHeader compares header against expected in constant time. An
// empty expected value rejects everything.
func RequireSecretHeader(header, expected, description string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if expected == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "shared secret mismatch",
					"header", header,
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
