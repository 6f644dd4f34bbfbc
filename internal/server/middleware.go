package server

import (
	"bufio"
	"net"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/burntop/burntop/internal/api"
	"github.com/burntop/burntop/internal/logger"
	"github.com/burntop/burntop/internal/middleware"
)

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Correlation)
	s.router.Use(RequestLogger)
	s.router.Use(chimiddleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.config.FrontendURL, "http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Encoding", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", middleware.CorrelationHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Sync clients batch large compressed payloads
	s.router.Use(middleware.GzipDecompress)
	s.router.Use(middleware.PayloadLimit(middleware.MaxPayloadBytes))

	if s.config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(s.config.RateLimitPerMinute, s.config.RateLimitBurst)
		s.router.Use(limiter.Middleware)
	}

	// Handlers observe the deadline through the request context; websocket
	// upgrades are exempt
	s.router.Use(middleware.ContextTimeout(middleware.DefaultRequestTimeout))
}

// RequestLogger logs every request with its status, duration and
// correlation id
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"correlation_id", api.CorrelationID(r.Context()),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker for websocket upgrades
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}
