package middleware

import (
	"context"
	"net/http"

	"playermodels-api/pkg/uid"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestID attaches a UUID to every request, echoed in the
// X-Request-ID response header. Incoming IDs from trusted proxies are
// preserved.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uid.New()
		}

		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID stored by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
