package websocket

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewSyncReceivedMessage(t *testing.T) {
	userID := uuid.New()
	before := time.Now()
	msg := NewSyncReceivedMessage(userID, 1500, "0.0150")
	after := time.Now()

	if msg.Type != MessageTypeSyncReceived {
		t.Errorf("Type = %q, want %q", msg.Type, MessageTypeSyncReceived)
	}
	if msg.Timestamp.Before(before.UTC()) || msg.Timestamp.After(after.UTC()) {
		t.Errorf("Timestamp not in expected range")
	}
	payload, ok := msg.Payload.(SyncReceivedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", msg.Payload)
	}
	if payload.UserID != userID.String() || payload.TotalTokens != 1500 || payload.TotalCost != "0.0150" {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestNewLeaderboardUpdatedMessage(t *testing.T) {
	msg := NewLeaderboardUpdatedMessage("week")

	if msg.Type != MessageTypeLeaderboardUpdated {
		t.Errorf("Type = %q, want %q", msg.Type, MessageTypeLeaderboardUpdated)
	}
	payload, ok := msg.Payload.(LeaderboardUpdatedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", msg.Payload)
	}
	if payload.Period != "week" {
		t.Errorf("Period = %q, want %q", payload.Period, "week")
	}
}

func TestNewStreakAtRiskMessage(t *testing.T) {
	userID := uuid.New()
	msg := NewStreakAtRiskMessage(userID, 7)

	if msg.Type != MessageTypeStreakAtRisk {
		t.Errorf("Type = %q, want %q", msg.Type, MessageTypeStreakAtRisk)
	}
	payload, ok := msg.Payload.(StreakAtRiskPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", msg.Payload)
	}
	if payload.CurrentStreak != 7 {
		t.Errorf("CurrentStreak = %d, want 7", payload.CurrentStreak)
	}
}
