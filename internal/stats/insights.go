package stats

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/burntop/burntop/internal/api"
	"github.com/burntop/burntop/internal/storage"
)

// reservedPercentile is reported for dimensions whose community distribution
// is not yet tracked; only the streak percentile is computed today.
const reservedPercentile = 50

// InsightsAssembler joins a user's aggregates against the period benchmark
type InsightsAssembler struct {
	store *storage.Store
}

func NewInsightsAssembler(store *storage.Store) *InsightsAssembler {
	return &InsightsAssembler{store: store}
}

// Assemble builds the insights view for (user, period). Without a computed
// benchmark for the period the view is undefined and a not-found error is
// returned.
func (a *InsightsAssembler) Assemble(ctx context.Context, userID uuid.UUID, period storage.Period, now time.Time) (*api.InsightsResponse, error) {
	bench, err := a.store.GetBenchmark(ctx, period)
	if err != nil {
		return nil, &api.StorageError{Operation: "load benchmark", Cause: err}
	}
	if bench == nil {
		return nil, &api.NotFoundError{Resource: "benchmark", ID: string(period)}
	}

	agg, err := a.store.AggregateUser(ctx, userID, period, now)
	if err != nil {
		return nil, &api.StorageError{Operation: "aggregate user usage", Cause: err}
	}

	currentStreak := 0
	st, err := a.store.GetStreak(ctx, userID)
	if err != nil {
		return nil, &api.StorageError{Operation: "load streak", Cause: err}
	}
	if st != nil {
		currentStreak = st.CurrentStreak
	}

	cacheEff, err := a.store.UserCacheEfficiency(ctx, userID, period, now)
	if err != nil {
		return nil, &api.StorageError{Operation: "compute cache efficiency", Cause: err}
	}

	streakPct, err := a.streakPercentile(ctx, currentStreak)
	if err != nil {
		return nil, err
	}

	userCost, _ := agg.TotalCost.Float64()
	resp := &api.InsightsResponse{
		Period: string(period),
		User: api.UserInsights{
			TotalTokens:     agg.TotalTokens,
			TotalCost:       userCost,
			UniqueTools:     agg.UniqueTools,
			UniqueDays:      agg.UniqueDays,
			CurrentStreak:   currentStreak,
			CacheEfficiency: round2(cacheEff),
		},
		Benchmark: benchmarkView(bench),
		Percentiles: api.InsightsPercentiles{
			Tokens:          reservedPercentile,
			Cost:            reservedPercentile,
			Streak:          streakPct,
			UniqueTools:     reservedPercentile,
			CacheEfficiency: reservedPercentile,
		},
	}

	if bench.AvgTokens != nil {
		resp.IsAboveAverageTokens = agg.TotalTokens > *bench.AvgTokens
	}
	if bench.AvgCost != nil {
		resp.IsAboveAverageCost = agg.TotalCost.GreaterThan(*bench.AvgCost)
	}
	if bench.AvgStreak != nil {
		resp.IsAboveAverageStreak = currentStreak > *bench.AvgStreak
	}
	if bench.AvgUniqueTools != nil {
		resp.IsAboveAverageUniqueTools = agg.UniqueTools > *bench.AvgUniqueTools
	}
	return resp, nil
}

// streakPercentile is the share of streak rows strictly below the user's
// current streak, as a percentage rounded to 2 decimals.
func (a *InsightsAssembler) streakPercentile(ctx context.Context, current int) (float64, error) {
	total, lower, err := a.store.CountStreaks(ctx, current)
	if err != nil {
		return 0, &api.StorageError{Operation: "count streaks", Cause: err}
	}
	if total == 0 {
		return 0, nil
	}
	return round2(100 * float64(lower) / float64(total)), nil
}

func benchmarkView(b *storage.Benchmark) api.BenchmarkView {
	view := api.BenchmarkView{
		TotalUsers:           b.TotalUsers,
		AvgTokens:            b.AvgTokens,
		MedianTokens:         b.MedianTokens,
		TotalCommunityTokens: b.TotalCommunityTokens,
		AvgStreak:            b.AvgStreak,
		AvgUniqueTools:       b.AvgUniqueTools,
		AvgCacheEfficiency:   b.AvgCacheEfficiency,
	}
	if b.AvgCost != nil {
		cost, _ := b.AvgCost.Float64()
		view.AvgCost = &cost
	}
	return view
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
