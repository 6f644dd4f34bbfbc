// Package handlers implements the versioned HTTP API surface
package handlers

import (
	"net/http"
	"strings"

	"github.com/burntop/burntop/internal/api"
	"github.com/burntop/burntop/internal/config"
	"github.com/burntop/burntop/internal/stats"
	"github.com/burntop/burntop/internal/storage"
	"github.com/burntop/burntop/internal/streak"
	"github.com/burntop/burntop/internal/syncer"
	"github.com/burntop/burntop/internal/websocket"
)

type Handlers struct {
	store    *storage.Store
	orch     *syncer.Orchestrator
	insights *stats.InsightsAssembler
	streaks  *streak.Engine
	hub      *websocket.Hub
	config   *config.Config
}

func New(store *storage.Store, orch *syncer.Orchestrator, insights *stats.InsightsAssembler, streaks *streak.Engine, hub *websocket.Hub, cfg *config.Config) *Handlers {
	return &Handlers{
		store:    store,
		orch:     orch,
		insights: insights,
		streaks:  streaks,
		hub:      hub,
		config:   cfg,
	}
}

// authenticate resolves the bearer token to an active user
func (h *Handlers) authenticate(r *http.Request) (*storage.User, error) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return nil, api.NewUnauthorizedError("missing bearer token")
	}

	user, err := h.store.GetSessionUser(r.Context(), token)
	if err != nil {
		return nil, api.NewStorageError("resolve session", err)
	}
	if user == nil {
		return nil, api.NewUnauthorizedError("invalid or expired token")
	}
	return user, nil
}

// HandleWebSocket upgrades the connection and attaches it to the hub
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, w, r)
}
