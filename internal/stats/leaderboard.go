// Package stats builds the derived views over accumulated usage: leaderboard
// rankings, community benchmarks and per-user insights.
package stats

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/burntop/burntop/internal/logger"
	"github.com/burntop/burntop/internal/storage"
)

// Notifier announces freshly built rankings to live clients. May be nil.
type Notifier interface {
	LeaderboardUpdated(period string)
}

// LeaderboardBuilder computes period-scoped rankings into the cache table
type LeaderboardBuilder struct {
	store *storage.Store
	hub   Notifier
}

func NewLeaderboardBuilder(store *storage.Store, hub Notifier) *LeaderboardBuilder {
	return &LeaderboardBuilder{store: store, hub: hub}
}

// BuildAll runs one ranking pass per period. A failing period is logged and
// does not stop the others.
func (b *LeaderboardBuilder) BuildAll(ctx context.Context, now time.Time) {
	for _, period := range storage.Periods {
		if err := b.Build(ctx, period, now); err != nil {
			logger.Error("leaderboard build failed", "period", string(period), "error", err)
		}
	}
}

// Build ranks every user by total tokens within the period window and
// replaces the cached rows. Ranks are dense 1..N; rank_change compares
// against the previous cache contents and is nil for new entrants.
func (b *LeaderboardBuilder) Build(ctx context.Context, period storage.Period, now time.Time) error {
	aggs, err := b.store.AggregateUsageByUser(ctx, period, now)
	if err != nil {
		return err
	}

	userIDs := make([]uuid.UUID, len(aggs))
	for i, agg := range aggs {
		userIDs[i] = agg.UserID
	}
	streaks, err := b.store.GetStreaks(ctx, userIDs)
	if err != nil {
		return err
	}
	previous, err := b.store.GetPreviousRanks(ctx, period)
	if err != nil {
		return err
	}

	rows := make([]storage.LeaderboardRow, len(aggs))
	for i, agg := range aggs {
		rank := i + 1
		row := storage.LeaderboardRow{
			UserID:      agg.UserID,
			Period:      period,
			Rank:        rank,
			TotalTokens: agg.TotalTokens,
			TotalCost:   agg.TotalCost,
		}
		if st, ok := streaks[agg.UserID]; ok {
			row.StreakDays = st.CurrentStreak
		}
		if prev, ok := previous[agg.UserID]; ok {
			change := prev - rank
			row.RankChange = &change
		}
		rows[i] = row
	}

	if err := b.store.UpsertLeaderboardRows(ctx, period, rows); err != nil {
		return err
	}

	if b.hub != nil {
		b.hub.LeaderboardUpdated(string(period))
	}
	logger.Debug("leaderboard built", "period", string(period), "users", len(rows))
	return nil
}
