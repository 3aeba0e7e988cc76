// Package requesttime pins a single "now" per request so that every timestamp
// written into a response or log line for that request agrees.
package requesttime

import (
	"net/http"
	"time"

	"kiosk-gateway/pkg/requestcontext"
)

// Middleware captures the wall clock once at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
