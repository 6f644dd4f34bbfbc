package websocket

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/burntop/burntop/internal/logger"
)

// Hub maintains the set of active clients and fans messages out to them.
// Slow clients are disconnected rather than allowed to block the rest.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run is the hub's main loop; start it once in its own goroutine
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			logger.Debug("websocket client connected", "total_clients", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()
			logger.Debug("websocket client disconnected", "total_clients", count)

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				logger.Error("failed to marshal websocket message", "error", err)
				continue
			}

			h.mu.RLock()
			var toDisconnect []*Client
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					toDisconnect = append(toDisconnect, client)
				}
			}
			h.mu.RUnlock()

			// Full send buffers get dropped outside the read lock
			for _, c := range toDisconnect {
				select {
				case h.unregister <- c:
				default:
					logger.Warn("unregister channel full, skipping client disconnect")
				}
			}
		}
	}
}

// Broadcast queues a message for every connected client; drops it when the
// queue is saturated.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		logger.Warn("broadcast channel full, dropping message", "message_type", msg.Type)
	}
}

// SyncReceived announces a committed sync batch
func (h *Hub) SyncReceived(userID uuid.UUID, totalTokens int64, totalCost string) {
	h.Broadcast(NewSyncReceivedMessage(userID, totalTokens, totalCost))
}

// LeaderboardUpdated announces a finished ranking pass
func (h *Hub) LeaderboardUpdated(period string) {
	h.Broadcast(NewLeaderboardUpdatedMessage(period))
}

// StreakAtRisk warns that a streak expires at the end of the user's local day
func (h *Hub) StreakAtRisk(userID uuid.UUID, currentStreak int) {
	h.Broadcast(NewStreakAtRiskMessage(userID, currentStreak))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
