package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateAllUsers returns per-user rollups (tokens, cost, unique sources,
// unique active days) for a period window, every user included.
func (s *Store) AggregateAllUsers(ctx context.Context, period Period, now time.Time) ([]UserAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT user_id,
		       SUM(input_tokens + output_tokens + COALESCE(cache_read_tokens, 0) + COALESCE(cache_write_tokens, 0) + COALESCE(reasoning_tokens, 0)),
		       CAST(SUM(cost) AS VARCHAR),
		       COUNT(DISTINCT source),
		       COUNT(DISTINCT date)
		FROM usage_records
	`
	var args []any
	if cutoff, ok := period.Cutoff(now); ok {
		query += ` WHERE date >= CAST(? AS DATE)`
		args = append(args, cutoff)
	}
	query += ` GROUP BY user_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregating all users: %w", err)
	}
	defer rows.Close()

	var aggs []UserAggregate
	for rows.Next() {
		var agg UserAggregate
		var id, cost string
		if err := rows.Scan(&id, &agg.TotalTokens, &cost, &agg.UniqueTools, &agg.UniqueDays); err != nil {
			return nil, fmt.Errorf("scanning user aggregate: %w", err)
		}
		if agg.UserID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing aggregate user id: %w", err)
		}
		if agg.TotalCost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("parsing aggregate cost: %w", err)
		}
		aggs = append(aggs, agg)
	}
	return aggs, rows.Err()
}

// AvgRowCacheEfficiency computes the mean over usage records of
// cache_read / total_tokens * 100, per row, excluding rows whose token
// total is zero. Returns false when no rows qualify.
func (s *Store) AvgRowCacheEfficiency(ctx context.Context, period Period, now time.Time) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT AVG(
			CAST(COALESCE(cache_read_tokens, 0) AS DOUBLE) /
			(input_tokens + output_tokens + COALESCE(cache_read_tokens, 0) + COALESCE(cache_write_tokens, 0) + COALESCE(reasoning_tokens, 0)) * 100
		)
		FROM usage_records
		WHERE (input_tokens + output_tokens + COALESCE(cache_read_tokens, 0) + COALESCE(cache_write_tokens, 0) + COALESCE(reasoning_tokens, 0)) > 0
	`
	var args []any
	if cutoff, ok := period.Cutoff(now); ok {
		query += ` AND date >= CAST(? AS DATE)`
		args = append(args, cutoff)
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&avg); err != nil {
		return 0, false, fmt.Errorf("averaging cache efficiency: %w", err)
	}
	return avg.Float64, avg.Valid, nil
}

// UpsertBenchmark writes the single row for a period
func (s *Store) UpsertBenchmark(ctx context.Context, b *Benchmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var avgCost any
	if b.AvgCost != nil {
		avgCost = b.AvgCost.String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO community_benchmarks (period, total_users, avg_tokens, median_tokens, total_community_tokens, avg_cost, avg_streak, avg_unique_tools, avg_cache_efficiency, updated_at)
		VALUES (?, ?, ?, ?, ?, CAST(? AS DECIMAL(14,4)), ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (period) DO UPDATE SET
			total_users            = excluded.total_users,
			avg_tokens             = excluded.avg_tokens,
			median_tokens          = excluded.median_tokens,
			total_community_tokens = excluded.total_community_tokens,
			avg_cost               = excluded.avg_cost,
			avg_streak             = excluded.avg_streak,
			avg_unique_tools       = excluded.avg_unique_tools,
			avg_cache_efficiency   = excluded.avg_cache_efficiency,
			updated_at             = now()
	`, string(b.Period), b.TotalUsers, b.AvgTokens, b.MedianTokens, b.TotalCommunityTokens,
		avgCost, b.AvgStreak, b.AvgUniqueTools, b.AvgCacheEfficiency)
	if err != nil {
		return fmt.Errorf("upserting benchmark: %w", err)
	}
	return nil
}

// GetBenchmark reads the row for a period, nil when never computed
func (s *Store) GetBenchmark(ctx context.Context, period Period) (*Benchmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT period, total_users, avg_tokens, median_tokens, total_community_tokens,
		       CAST(avg_cost AS VARCHAR), avg_streak, avg_unique_tools, avg_cache_efficiency
		FROM community_benchmarks
		WHERE period = ?
	`, string(period))

	var b Benchmark
	var periodStr string
	var avgCost sql.NullString
	err := row.Scan(&periodStr, &b.TotalUsers, &b.AvgTokens, &b.MedianTokens, &b.TotalCommunityTokens,
		&avgCost, &b.AvgStreak, &b.AvgUniqueTools, &b.AvgCacheEfficiency)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying benchmark: %w", err)
	}
	b.Period = Period(periodStr)
	if avgCost.Valid {
		cost, err := decimal.NewFromString(avgCost.String)
		if err != nil {
			return nil, fmt.Errorf("parsing benchmark cost: %w", err)
		}
		b.AvgCost = &cost
	}
	return &b, nil
}
