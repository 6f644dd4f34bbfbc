package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestStreakUpsertAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, store, 1)

	st, err := store.GetStreak(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != nil {
		t.Fatalf("expected nil before any activity, got %+v", st)
	}

	if err := store.UpsertStreak(ctx, &Streak{
		UserID:         userID,
		CurrentStreak:  1,
		LongestStreak:  1,
		LastActiveDate: "2026-08-25",
		Timezone:       "America/New_York",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, err = store.GetStreak(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st == nil {
		t.Fatal("expected a streak row")
	}
	if st.CurrentStreak != 1 || st.LongestStreak != 1 || st.LastActiveDate != "2026-08-25" || st.Timezone != "America/New_York" {
		t.Errorf("unexpected streak: %+v", st)
	}

	// Upsert replaces the full state
	if err := store.UpsertStreak(ctx, &Streak{
		UserID:         userID,
		CurrentStreak:  2,
		LongestStreak:  5,
		LastActiveDate: "2026-08-26",
		Timezone:       "America/New_York",
	}); err != nil {
		t.Fatal(err)
	}
	st, err = store.GetStreak(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if st.CurrentStreak != 2 || st.LongestStreak != 5 || st.LastActiveDate != "2026-08-26" {
		t.Errorf("unexpected streak after update: %+v", st)
	}
}

func TestStreakNullLastActive(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	userID := createTestUser(t, store, 1)

	if err := store.UpsertStreak(ctx, &Streak{
		UserID:   userID,
		Timezone: "UTC",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, err := store.GetStreak(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st == nil {
		t.Fatal("expected a streak row")
	}
	if st.LastActiveDate != "" {
		t.Errorf("null last_active_date should read as empty, got %q", st.LastActiveDate)
	}
}

func TestGetStreaks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestUser(t, store, 1)
	bob := createTestUser(t, store, 2)
	carol := createTestUser(t, store, 3)

	if err := store.UpsertStreak(ctx, &Streak{UserID: alice, CurrentStreak: 3, LongestStreak: 3, LastActiveDate: "2026-08-26", Timezone: "UTC"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertStreak(ctx, &Streak{UserID: bob, CurrentStreak: 1, LongestStreak: 7, LastActiveDate: "2026-08-26", Timezone: "UTC"}); err != nil {
		t.Fatal(err)
	}

	streaks, err := store.GetStreaks(ctx, []uuid.UUID{alice, bob, carol})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(streaks) != 2 {
		t.Fatalf("expected 2 streak rows, got %d", len(streaks))
	}
	if streaks[alice].CurrentStreak != 3 || streaks[bob].LongestStreak != 7 {
		t.Errorf("unexpected streaks: alice=%+v bob=%+v", streaks[alice], streaks[bob])
	}
	if _, ok := streaks[carol]; ok {
		t.Error("user without a streak row should be absent from the map")
	}
}

func TestListActiveStreaks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	active := createTestUser(t, store, 1)
	broken := createTestUser(t, store, 2)

	if err := store.UpsertStreak(ctx, &Streak{UserID: active, CurrentStreak: 4, LongestStreak: 4, LastActiveDate: "2026-08-26", Timezone: "UTC"}); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertStreak(ctx, &Streak{UserID: broken, CurrentStreak: 0, LongestStreak: 9, LastActiveDate: "2026-08-01", Timezone: "UTC"}); err != nil {
		t.Fatal(err)
	}

	streaks, err := store.ListActiveStreaks(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(streaks) != 1 {
		t.Fatalf("expected 1 active streak, got %d", len(streaks))
	}
	if streaks[0].UserID != active {
		t.Errorf("unexpected active streak: %+v", streaks[0])
	}
}

func TestCountStreaks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	for i, current := range []int{0, 2, 5, 9} {
		userID := createTestUser(t, store, i+1)
		if err := store.UpsertStreak(ctx, &Streak{UserID: userID, CurrentStreak: current, LongestStreak: current, Timezone: "UTC"}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		below     int
		wantTotal int
		wantLower int
	}{
		{0, 4, 0},
		{2, 4, 1},
		{5, 4, 2},
		{10, 4, 4},
	}
	for _, tt := range tests {
		total, lower, err := store.CountStreaks(ctx, tt.below)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if total != tt.wantTotal || lower != tt.wantLower {
			t.Errorf("CountStreaks(%d): expected (%d, %d), got (%d, %d)",
				tt.below, tt.wantTotal, tt.wantLower, total, lower)
		}
	}
}
