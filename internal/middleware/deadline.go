package middleware

import (
	"context"
	"net/http"
	"time"
)

// Deadline bounds the request context so directory and delegate calls made
// with it are abandoned once timeout elapses.
func Deadline(timeout time.Duration, next http.Handler) http.Handler {
	if timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
