package handlers

import (
	"net/http"

	"github.com/burntop/burntop/internal/api"
)

// HandleStreak handles GET /api/v1/streak
func (h *Handlers) HandleStreak(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	st, err := h.store.GetStreak(r.Context(), user.ID)
	if err != nil {
		api.WriteError(w, r, api.NewStorageError("read streak", err))
		return
	}

	resp := api.StreakResponse{Timezone: "UTC"}
	if st != nil {
		resp = api.StreakResponse{
			CurrentStreak:  st.CurrentStreak,
			LongestStreak:  st.LongestStreak,
			LastActiveDate: st.LastActiveDate,
			Timezone:       st.Timezone,
		}
	}
	api.WriteJSON(w, http.StatusOK, resp)
}
