package stats

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/burntop/burntop/internal/logger"
	"github.com/burntop/burntop/internal/storage"
)

// BenchmarkBuilder computes the community-wide statistics row per period
type BenchmarkBuilder struct {
	store *storage.Store
}

func NewBenchmarkBuilder(store *storage.Store) *BenchmarkBuilder {
	return &BenchmarkBuilder{store: store}
}

// BuildAll computes every period; failures are logged and skipped
func (b *BenchmarkBuilder) BuildAll(ctx context.Context, now time.Time) {
	for _, period := range storage.Periods {
		if err := b.Build(ctx, period, now); err != nil {
			logger.Error("benchmark build failed", "period", string(period), "error", err)
		}
	}
}

// Build aggregates per-user totals over the period window into a single
// benchmark row. An empty community writes total_users=0 with all statistic
// fields null.
func (b *BenchmarkBuilder) Build(ctx context.Context, period storage.Period, now time.Time) error {
	aggs, err := b.store.AggregateAllUsers(ctx, period, now)
	if err != nil {
		return err
	}
	if len(aggs) == 0 {
		return b.store.UpsertBenchmark(ctx, &storage.Benchmark{Period: period})
	}

	n := int64(len(aggs))
	tokens := make([]int64, len(aggs))
	var totalTokens, totalTools int64
	totalCost := decimal.Zero
	for i, agg := range aggs {
		tokens[i] = agg.TotalTokens
		totalTokens += agg.TotalTokens
		totalTools += int64(agg.UniqueTools)
		totalCost = totalCost.Add(agg.TotalCost)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	avgTokens := totalTokens / n
	medianTokens := tokens[len(tokens)/2]
	avgCost := totalCost.DivRound(decimal.NewFromInt(n), 4)
	avgTools := int(totalTools / n)

	var avgStreak *int
	active, err := b.store.ListActiveStreaks(ctx)
	if err != nil {
		return err
	}
	if len(active) > 0 {
		sum := 0
		for _, st := range active {
			sum += st.CurrentStreak
		}
		mean := sum / len(active)
		avgStreak = &mean
	}

	var avgCacheEfficiency *float64
	eff, valid, err := b.store.AvgRowCacheEfficiency(ctx, period, now)
	if err != nil {
		return err
	}
	if valid {
		avgCacheEfficiency = &eff
	}

	bench := &storage.Benchmark{
		Period:               period,
		TotalUsers:           len(aggs),
		AvgTokens:            &avgTokens,
		MedianTokens:         &medianTokens,
		TotalCommunityTokens: &totalTokens,
		AvgCost:              &avgCost,
		AvgStreak:            avgStreak,
		AvgUniqueTools:       &avgTools,
		AvgCacheEfficiency:   avgCacheEfficiency,
	}
	if err := b.store.UpsertBenchmark(ctx, bench); err != nil {
		return err
	}
	logger.Debug("benchmark built", "period", string(period), "users", len(aggs))
	return nil
}
