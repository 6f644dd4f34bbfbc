package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/burntop/burntop/internal/api"
)

// HandleSync handles POST /api/v1/sync
func (h *Handlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req api.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, r, api.NewValidationError("body", "invalid JSON payload"))
		return
	}

	resp, err := h.orch.ProcessSync(r.Context(), user.ID, &req)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, resp)
}
