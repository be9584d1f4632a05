package router

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/wolfman30/clinic-admin/internal/http/respond"
)

const webhookTokenHeader = "X-Webhook-Token"
const webhookTokenQuery = "token"

// requireWebhookToken checks the shared secret the reminder scheduler sends
// back on callbacks. When expected is empty, the middleware is a no-op.
func requireWebhookToken(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(webhookTokenHeader))
			if token == "" {
				token = strings.TrimSpace(r.URL.Query().Get(webhookTokenQuery))
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
				respond.Error(w, "invalid webhook token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
