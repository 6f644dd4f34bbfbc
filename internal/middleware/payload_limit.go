package middleware

import (
	"net/http"

	"github.com/burntop/burntop/internal/api"
)

// MaxPayloadBytes caps sync payload size (10 MB). Large batches should be
// split client-side.
const MaxPayloadBytes int64 = 10 * 1024 * 1024

// PayloadLimit rejects oversized request bodies
func PayloadLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				api.WriteError(w, r, api.NewBadRequestError("request body too large"))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
