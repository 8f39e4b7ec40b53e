package middleware

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const principalContextKey contextKey = "principal"

const (
	UserIDHeader   = "X-User-ID"
	UserRoleHeader = "X-User-Role"
	roleAdmin      = "admin"
)

// Principal is the caller as asserted by the upstream gateway.
type Principal struct {
	UserID  string
	IsAdmin bool
}

func PrincipalFromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalContextKey).(Principal)
	return p
}

// WithPrincipal stores p on ctx. Handlers read it back with PrincipalFromContext.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// GatewayAuth accepts requests carrying the shared gateway token and lifts
// the principal headers into the request context. An empty token disables
// the bearer check, which is only meant for local development.
func GatewayAuth(token string) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) > 0 {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
					return
				}

				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
					writeError(w, http.StatusUnauthorized, "unauthorized", "invalid authorization header format")
					return
				}
				if subtle.ConstantTimeCompare([]byte(parts[1]), expected) != 1 {
					writeError(w, http.StatusUnauthorized, "unauthorized", "invalid gateway token")
					return
				}
			}

			p := Principal{
				UserID:  strings.TrimSpace(r.Header.Get(UserIDHeader)),
				IsAdmin: strings.EqualFold(strings.TrimSpace(r.Header.Get(UserRoleHeader)), roleAdmin),
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
