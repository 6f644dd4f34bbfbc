package handlers

import (
	"net/http"
	"time"

	"github.com/burntop/burntop/internal/api"
	"github.com/burntop/burntop/internal/storage"
)

// HandleInsights handles GET /api/v1/insights
func (h *Handlers) HandleInsights(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	period, ok := storage.ParsePeriod(r.URL.Query().Get("period"))
	if !ok {
		api.WriteError(w, r, api.NewValidationError("period", "must be one of: all, month, week"))
		return
	}

	resp, err := h.insights.Assemble(r.Context(), user.ID, period, time.Now().UTC())
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, resp)
}
