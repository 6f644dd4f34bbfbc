package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout is the default deadline for HTTP requests
const DefaultRequestTimeout = 30 * time.Second

// ContextTimeout puts a deadline on the request context. Handlers observe it
// through ctx.Done(); the ResponseWriter is left untouched so WebSocket
// hijacking keeps working.
func ContextTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// WebSocket upgrades stay open past any request deadline
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
