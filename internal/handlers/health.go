package handlers

import (
	"net/http"

	"github.com/burntop/burntop/internal/api"
	"github.com/burntop/burntop/internal/version"
)

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}
