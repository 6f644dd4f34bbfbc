package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestAggregateUsageByUser(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestUser(t, store, 1)
	bob := createTestUser(t, store, 2)
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	rows := []UsageUpsert{
		// alice: big last week, nothing before
		testUpsert(alice, "2026-08-25", "cursor", "gpt-4o", "m", 9000, 1000, "1.0000"),
		// bob: small last week, huge earlier in the month
		testUpsert(bob, "2026-08-24", "cursor", "gpt-4o", "m", 1000, 0, "0.1000"),
		testUpsert(bob, "2026-08-05", "cursor", "gpt-4o", "m", 50000, 0, "5.0000"),
	}
	if _, _, err := store.UpsertDailyRecords(ctx, rows); err != nil {
		t.Fatal(err)
	}

	// All-time: bob leads
	aggs, err := store.AggregateUsageByUser(ctx, PeriodAll, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aggs) != 2 {
		t.Fatalf("expected 2 users, got %d", len(aggs))
	}
	if aggs[0].UserID != bob || aggs[0].TotalTokens != 51000 {
		t.Errorf("expected bob first all-time with 51000 tokens, got %+v", aggs[0])
	}

	// Weekly window: alice leads
	aggs, err = store.AggregateUsageByUser(ctx, PeriodWeek, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(aggs) != 2 {
		t.Fatalf("expected 2 users, got %d", len(aggs))
	}
	if aggs[0].UserID != alice || aggs[0].TotalTokens != 10000 {
		t.Errorf("expected alice first weekly with 10000 tokens, got %+v", aggs[0])
	}
	if aggs[1].UserID != bob || aggs[1].TotalTokens != 1000 {
		t.Errorf("expected bob second weekly with 1000 tokens, got %+v", aggs[1])
	}
}

func TestUpsertAndGetLeaderboard(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestUser(t, store, 1)
	bob := createTestUser(t, store, 2)

	up := 2
	rows := []LeaderboardRow{
		{UserID: alice, Period: PeriodAll, Rank: 1, TotalTokens: 5000, TotalCost: decimal.RequireFromString("0.5000"), StreakDays: 3, RankChange: &up},
		{UserID: bob, Period: PeriodAll, Rank: 2, TotalTokens: 3000, TotalCost: decimal.RequireFromString("0.3000"), StreakDays: 1},
	}
	if err := store.UpsertLeaderboardRows(ctx, PeriodAll, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, total, err := store.GetLeaderboard(ctx, PeriodAll, "tokens", 100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected total 2, got %d", total)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != alice || entries[0].Rank != 1 || entries[0].Username != "user1" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].RankChange == nil || *entries[0].RankChange != 2 {
		t.Errorf("expected rank_change 2, got %v", entries[0].RankChange)
	}
	if entries[1].RankChange != nil {
		t.Errorf("expected nil rank_change for new entrant, got %v", entries[1].RankChange)
	}
}

func TestUpsertLeaderboardRowsTrimsStale(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestUser(t, store, 1)
	bob := createTestUser(t, store, 2)

	first := []LeaderboardRow{
		{UserID: alice, Period: PeriodWeek, Rank: 1, TotalTokens: 5000},
		{UserID: bob, Period: PeriodWeek, Rank: 2, TotalTokens: 3000},
	}
	if err := store.UpsertLeaderboardRows(ctx, PeriodWeek, first); err != nil {
		t.Fatal(err)
	}

	// Next pass ranks a single user; the stale second row must go
	second := []LeaderboardRow{
		{UserID: bob, Period: PeriodWeek, Rank: 1, TotalTokens: 8000},
	}
	if err := store.UpsertLeaderboardRows(ctx, PeriodWeek, second); err != nil {
		t.Fatal(err)
	}

	entries, total, err := store.GetLeaderboard(ctx, PeriodWeek, "tokens", 100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("expected a single remaining entry, got total=%d len=%d", total, len(entries))
	}
	if entries[0].UserID != bob || entries[0].Rank != 1 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestUpsertLeaderboardRowsEmptyPassClears(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestUser(t, store, 1)

	rows := []LeaderboardRow{{UserID: alice, Period: PeriodWeek, Rank: 1, TotalTokens: 5000}}
	if err := store.UpsertLeaderboardRows(ctx, PeriodWeek, rows); err != nil {
		t.Fatal(err)
	}

	// A pass that ranks nobody clears the period entirely
	if err := store.UpsertLeaderboardRows(ctx, PeriodWeek, nil); err != nil {
		t.Fatal(err)
	}

	entries, total, err := store.GetLeaderboard(ctx, PeriodWeek, "tokens", 100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(entries) != 0 {
		t.Errorf("expected empty leaderboard, got total=%d len=%d", total, len(entries))
	}
}

func TestGetLeaderboardSortAndPaging(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	users := make([]uuid.UUID, 3)
	for i := range users {
		users[i] = createTestUser(t, store, i+1)
	}

	// tokens order: 0,1,2; cost order: 2,0,1; streak order: 1,2,0
	rows := []LeaderboardRow{
		{UserID: users[0], Period: PeriodAll, Rank: 1, TotalTokens: 9000, TotalCost: decimal.RequireFromString("0.5000"), StreakDays: 1},
		{UserID: users[1], Period: PeriodAll, Rank: 2, TotalTokens: 6000, TotalCost: decimal.RequireFromString("0.2000"), StreakDays: 9},
		{UserID: users[2], Period: PeriodAll, Rank: 3, TotalTokens: 3000, TotalCost: decimal.RequireFromString("0.9000"), StreakDays: 4},
	}
	if err := store.UpsertLeaderboardRows(ctx, PeriodAll, rows); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		sortBy string
		want   []uuid.UUID
	}{
		{"tokens", []uuid.UUID{users[0], users[1], users[2]}},
		{"cost", []uuid.UUID{users[2], users[0], users[1]}},
		{"streak", []uuid.UUID{users[1], users[2], users[0]}},
	}
	for _, tt := range tests {
		t.Run(tt.sortBy, func(t *testing.T) {
			entries, _, err := store.GetLeaderboard(ctx, PeriodAll, tt.sortBy, 100, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i, want := range tt.want {
				if entries[i].UserID != want {
					t.Errorf("position %d: expected %s, got %s", i, want, entries[i].UserID)
				}
			}
		})
	}

	page, total, err := store.GetLeaderboard(ctx, PeriodAll, "tokens", 2, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("total should ignore paging, got %d", total)
	}
	if len(page) != 2 || page[0].UserID != users[1] {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestGetLeaderboardSkipsDeletedUsers(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestUser(t, store, 1)
	bob := createTestUser(t, store, 2)

	rows := []LeaderboardRow{
		{UserID: alice, Period: PeriodAll, Rank: 1, TotalTokens: 5000},
		{UserID: bob, Period: PeriodAll, Rank: 2, TotalTokens: 3000},
	}
	if err := store.UpsertLeaderboardRows(ctx, PeriodAll, rows); err != nil {
		t.Fatal(err)
	}
	if err := store.SoftDeleteUser(ctx, alice); err != nil {
		t.Fatal(err)
	}

	entries, total, err := store.GetLeaderboard(ctx, PeriodAll, "tokens", 100, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(entries) != 1 || entries[0].UserID != bob {
		t.Errorf("deleted user should not be listed: total=%d entries=%+v", total, entries)
	}
}

func TestGetPreviousRanks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	alice := createTestUser(t, store, 1)

	ranks, err := store.GetPreviousRanks(ctx, PeriodAll)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranks) != 0 {
		t.Errorf("expected empty map before first pass, got %v", ranks)
	}

	rows := []LeaderboardRow{{UserID: alice, Period: PeriodAll, Rank: 4, TotalTokens: 100}}
	if err := store.UpsertLeaderboardRows(ctx, PeriodAll, rows); err != nil {
		t.Fatal(err)
	}

	ranks, err = store.GetPreviousRanks(ctx, PeriodAll)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ranks[alice] != 4 {
		t.Errorf("expected rank 4, got %v", ranks)
	}
}

func TestLeaderboardSortColumn(t *testing.T) {
	tests := []struct {
		sortBy string
		want   string
		ok     bool
	}{
		{"tokens", "total_tokens", true},
		{"cost", "total_cost", true},
		{"streak", "streak_days", true},
		{"", "total_tokens", true},
		{"bogus", "", false},
	}
	for _, tt := range tests {
		col, ok := leaderboardSortColumn(tt.sortBy)
		if ok != tt.ok || (ok && col != tt.want) {
			t.Errorf("leaderboardSortColumn(%q) = (%q, %v), expected (%q, %v)", tt.sortBy, col, ok, tt.want, tt.ok)
		}
	}
}
