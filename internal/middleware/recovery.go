package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"playermodels-api/pkg/apierror"
	"playermodels-api/pkg/response"
)

// Recovery converts panics into 500 responses and logs the stack trace.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("[Recovery] panic on %s %s: %v\n%s",
					r.Method, r.URL.Path, rec, debug.Stack())
				response.Error(w, apierror.InternalError("internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
