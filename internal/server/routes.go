package server

import (
	"github.com/go-chi/chi/v5"

	"github.com/burntop/burntop/internal/handlers"
)

func (s *Server) setupRoutes(h *handlers.Handlers) {
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/sync", h.HandleSync)
		r.Get("/leaderboard", h.HandleLeaderboard)
		r.Get("/insights", h.HandleInsights)
		r.Get("/streak", h.HandleStreak)

		r.Post("/auth/register", h.HandleRegister)
		r.Post("/auth/login", h.HandleLogin)
		r.Get("/users/me", h.HandleMe)
	})

	// WebSocket for live sync and leaderboard events
	s.router.Get("/ws", h.HandleWebSocket)

	s.router.Get("/health", h.Health)
}
