package websocket

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageTypeSyncReceived       MessageType = "sync_received"
	MessageTypeLeaderboardUpdated MessageType = "leaderboard_updated"
	MessageTypeStreakAtRisk       MessageType = "streak_at_risk"
)

type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SyncReceivedPayload announces a committed sync batch
type SyncReceivedPayload struct {
	UserID      string `json:"user_id"`
	TotalTokens int64  `json:"total_tokens"`
	TotalCost   string `json:"total_cost"`
}

// LeaderboardUpdatedPayload tells clients a ranking pass finished
type LeaderboardUpdatedPayload struct {
	Period string `json:"period"`
}

// StreakAtRiskPayload warns a user their streak ends at local midnight
type StreakAtRiskPayload struct {
	UserID        string `json:"user_id"`
	CurrentStreak int    `json:"current_streak"`
}

func NewSyncReceivedMessage(userID uuid.UUID, totalTokens int64, totalCost string) Message {
	return Message{
		Type:      MessageTypeSyncReceived,
		Timestamp: time.Now().UTC(),
		Payload: SyncReceivedPayload{
			UserID:      userID.String(),
			TotalTokens: totalTokens,
			TotalCost:   totalCost,
		},
	}
}

func NewLeaderboardUpdatedMessage(period string) Message {
	return Message{
		Type:      MessageTypeLeaderboardUpdated,
		Timestamp: time.Now().UTC(),
		Payload:   LeaderboardUpdatedPayload{Period: period},
	}
}

func NewStreakAtRiskMessage(userID uuid.UUID, currentStreak int) Message {
	return Message{
		Type:      MessageTypeStreakAtRisk,
		Timestamp: time.Now().UTC(),
		Payload: StreakAtRiskPayload{
			UserID:        userID.String(),
			CurrentStreak: currentStreak,
		},
	}
}
