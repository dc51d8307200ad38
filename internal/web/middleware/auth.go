// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nuptia/admin/internal/backend"
)

// OperatorAuthorizer checks an operator credential against the hosted backend.
type OperatorAuthorizer interface {
	AuthorizeOperator(ctx context.Context, token string) error
}

// OperatorAuth returns middleware that gates the admin workflows behind an
// explicit authorization query. The check runs before any handler logic:
// an unauthorized caller is turned away with a notification body and never
// reaches the import or create flows.
func OperatorAuth(authorizer OperatorAuthorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				slog.Warn("auth: missing bearer token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				http.Error(w, `{"error":"missing credentials","code":"AUTH_MISSING_TOKEN"}`, http.StatusUnauthorized)
				return
			}

			if err := authorizer.AuthorizeOperator(r.Context(), token); err != nil {
				if errors.Is(err, backend.ErrNotOperator) {
					slog.Warn("auth: caller is not an operator",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_addr", r.RemoteAddr,
					)
					http.Error(w, `{"error":"access denied: admin operators only","code":"AUTH_NOT_OPERATOR"}`, http.StatusForbidden)
					return
				}

				slog.Error("auth: authorization check failed",
					"path", r.URL.Path,
					"error", err,
				)
				http.Error(w, `{"error":"authorization check unavailable","code":"AUTH_BACKEND_ERROR"}`, http.StatusBadGateway)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credential from an "Authorization: Bearer ..."
// header, or returns "".
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}
