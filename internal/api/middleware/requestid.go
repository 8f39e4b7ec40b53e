package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	// CorrelationIDHeader is set by the upstream gateway when the caller
	// sent no request id of its own.
	CorrelationIDHeader = "X-Correlation-ID"

	requestIDKey    = contextKey("request_id")
	maxRequestIDLen = 128
)

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// validRequestID accepts ids that are safe to echo and log verbatim.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

// RequestID tags each request with the caller's X-Request-ID, else the
// gateway's correlation id, else a fresh UUID. Ids that fail validation are
// replaced. The chosen id is echoed on the response and logged with every
// access line.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		for _, h := range []string{RequestIDHeader, CorrelationIDHeader} {
			if id := r.Header.Get(h); validRequestID(id) {
				requestID = id
				break
			}
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID)))
	})
}
