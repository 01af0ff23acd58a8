package middleware

import (
	"crypto/subtle"
	"net/http"

	"playermodels-api/pkg/apierror"
	"playermodels-api/pkg/response"
)

// APIKeyAuth checks the X-API-Key header against the configured key
// list. With no keys configured the check is disabled; that is meant for
// local development only.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(keys) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get("X-API-Key")
			if provided == "" {
				response.Error(w, apierror.Unauthorized("missing API key"))
				return
			}

			for _, key := range keys {
				if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}

			response.Error(w, apierror.Unauthorized("invalid API key"))
		})
	}
}
