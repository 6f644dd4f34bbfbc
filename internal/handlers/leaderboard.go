package handlers

import (
	"net/http"
	"strconv"

	"github.com/burntop/burntop/internal/api"
	"github.com/burntop/burntop/internal/storage"
)

const (
	defaultLeaderboardLimit = 100
	maxLeaderboardLimit     = 1000
)

// HandleLeaderboard handles GET /api/v1/leaderboard
func (h *Handlers) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	period, ok := storage.ParsePeriod(q.Get("period"))
	if !ok {
		api.WriteError(w, r, api.NewValidationError("period", "must be one of: all, month, week"))
		return
	}

	sortBy := q.Get("sort_by")
	switch sortBy {
	case "":
		sortBy = "tokens"
	case "tokens", "cost", "streak":
	default:
		api.WriteError(w, r, api.NewValidationError("sort_by", "must be one of: tokens, cost, streak"))
		return
	}

	limit, err := parseIntParam(q.Get("limit"), defaultLeaderboardLimit)
	if err != nil || limit < 1 || limit > maxLeaderboardLimit {
		api.WriteError(w, r, api.NewValidationError("limit", "must be an integer between 1 and 1000"))
		return
	}
	offset, err := parseIntParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		api.WriteError(w, r, api.NewValidationError("offset", "must be a non-negative integer"))
		return
	}

	rows, total, err := h.store.GetLeaderboard(r.Context(), period, sortBy, limit, offset)
	if err != nil {
		api.WriteError(w, r, api.NewStorageError("read leaderboard", err))
		return
	}

	entries := make([]api.LeaderboardEntry, len(rows))
	for i, row := range rows {
		cost, _ := row.TotalCost.Float64()
		entries[i] = api.LeaderboardEntry{
			Rank:        row.Rank,
			UserID:      row.UserID.String(),
			Username:    row.Username,
			DisplayName: row.DisplayName,
			TotalTokens: row.TotalTokens,
			TotalCost:   cost,
			StreakDays:  row.StreakDays,
			RankChange:  row.RankChange,
		}
	}

	api.WriteJSON(w, http.StatusOK, api.LeaderboardResponse{
		Entries: entries,
		Pagination: api.Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(entries) < total,
		},
		Period: string(period),
		SortBy: sortBy,
	})
}

func parseIntParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
