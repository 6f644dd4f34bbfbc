package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/burntop/burntop/internal/api"
)

// GzipDecompress transparently inflates gzip-encoded request bodies. Sync
// clients batch thousands of messages per call and ship them compressed.
func GzipDecompress(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			reader, err := gzip.NewReader(r.Body)
			if err != nil {
				api.WriteError(w, r, api.NewBadRequestError("malformed gzip request body"))
				return
			}
			defer reader.Close()
			r.Body = io.NopCloser(reader)
			r.Header.Del("Content-Encoding")
		}
		next.ServeHTTP(w, r)
	})
}
