package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/burntop/burntop/internal/api"
)

// CorrelationHeader carries the per-request correlation ID both ways
const CorrelationHeader = "X-Correlation-ID"

// Correlation attaches a correlation ID to the request context and echoes it
// on the response. Client-supplied IDs are kept so multi-hop traces line up.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, id)
		ctx := api.WithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
