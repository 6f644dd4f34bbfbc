package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// rankingLimit caps how many users a leaderboard pass ranks
const rankingLimit = 1000

// AggregateUsageByUser rolls up tokens and cost per user over a period
// window, ordered by total tokens descending. The ORDER BY repeats the full
// expression rather than the alias so ordering is deterministic across
// backends.
func (s *Store) AggregateUsageByUser(ctx context.Context, period Period, now time.Time) ([]UserAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT user_id,
		       SUM(input_tokens + output_tokens + COALESCE(cache_read_tokens, 0) + COALESCE(cache_write_tokens, 0) + COALESCE(reasoning_tokens, 0)) AS total_tokens,
		       CAST(SUM(cost) AS VARCHAR)
		FROM usage_records
	`
	var args []any
	if cutoff, ok := period.Cutoff(now); ok {
		query += ` WHERE date >= CAST(? AS DATE)`
		args = append(args, cutoff)
	}
	query += `
		GROUP BY user_id
		ORDER BY SUM(input_tokens + output_tokens + COALESCE(cache_read_tokens, 0) + COALESCE(cache_write_tokens, 0) + COALESCE(reasoning_tokens, 0)) DESC
		LIMIT ?
	`
	args = append(args, rankingLimit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregating usage by user: %w", err)
	}
	defer rows.Close()

	var aggs []UserAggregate
	for rows.Next() {
		var agg UserAggregate
		var id, cost string
		if err := rows.Scan(&id, &agg.TotalTokens, &cost); err != nil {
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

// GetPreviousRanks loads the current cache ranks for a period
func (s *Store) GetPreviousRanks(ctx context.Context, period Period) (map[uuid.UUID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, "rank" FROM leaderboard_cache WHERE period = ?`, string(period))
	if err != nil {
		return nil, fmt.Errorf("querying previous ranks: %w", err)
	}
	defer rows.Close()

	ranks := make(map[uuid.UUID]int)
	for rows.Next() {
		var id string
		var rank int
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, fmt.Errorf("scanning previous rank: %w", err)
		}
		uid, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parsing rank user id: %w", err)
		}
		ranks[uid] = rank
	}
	return ranks, rows.Err()
}

// UpsertLeaderboardRows replaces the cached ranking for a period. Rows for
// users who fell out of the top list are removed so ranks stay dense.
func (s *Store) UpsertLeaderboardRows(ctx context.Context, period Period, rows []LeaderboardRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning leaderboard transaction: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		var rankChange any
		if row.RankChange != nil {
			rankChange = *row.RankChange
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO leaderboard_cache (id, user_id, period, "rank", total_tokens, total_cost, streak_days, rank_change, updated_at)
			VALUES (?, ?, ?, ?, ?, CAST(? AS DECIMAL(14,4)), ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (user_id, period) DO UPDATE SET
				"rank"       = excluded."rank",
				total_tokens = excluded.total_tokens,
				total_cost   = excluded.total_cost,
				streak_days  = excluded.streak_days,
				rank_change  = excluded.rank_change,
				updated_at   = now()
		`, uuid.NewString(), row.UserID.String(), string(period),
			row.Rank, row.TotalTokens, row.TotalCost.String(), row.StreakDays, rankChange)
		if err != nil {
			return fmt.Errorf("upserting leaderboard row: %w", err)
		}
	}

	// Drop users who fell out of the ranking so ranks stay a dense 1..N
	// permutation
	if len(rows) == 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM leaderboard_cache WHERE period = ?`, string(period))
	} else {
		placeholders := strings.Repeat("?,", len(rows))
		placeholders = placeholders[:len(placeholders)-1]
		args := make([]any, 0, len(rows)+1)
		args = append(args, string(period))
		for _, row := range rows {
			args = append(args, row.UserID.String())
		}
		_, err = tx.ExecContext(ctx, fmt.Sprintf(
			`DELETE FROM leaderboard_cache WHERE period = ? AND user_id NOT IN (%s)`, placeholders), args...)
	}
	if err != nil {
		return fmt.Errorf("pruning stale leaderboard rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing leaderboard transaction: %w", err)
	}
	return nil
}

// leaderboardSortColumn maps the public sort_by values to cache columns
func leaderboardSortColumn(sortBy string) (string, bool) {
	switch sortBy {
	case "", "tokens":
		return "total_tokens", true
	case "cost":
		return "total_cost", true
	case "streak":
		return "streak_days", true
	default:
		return "", false
	}
}

// GetLeaderboard reads a page of the cached ranking joined with profile
// fields, skipping soft-deleted users. Returns the page and the total row
// count for the period.
func (s *Store) GetLeaderboard(ctx context.Context, period Period, sortBy string, limit, offset int) ([]LeaderboardEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	column, ok := leaderboardSortColumn(sortBy)
	if !ok {
		return nil, 0, fmt.Errorf("unknown sort column %q", sortBy)
	}

	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM leaderboard_cache lc
		JOIN users u ON u.id = lc.user_id AND u.deleted_at IS NULL
		WHERE lc.period = ?
	`, string(period)).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting leaderboard rows: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT lc.user_id, lc."rank", lc.total_tokens, CAST(lc.total_cost AS VARCHAR),
		       lc.streak_days, lc.rank_change, u.username, COALESCE(u.display_name, '')
		FROM leaderboard_cache lc
		JOIN users u ON u.id = lc.user_id AND u.deleted_at IS NULL
		WHERE lc.period = ?
		ORDER BY lc.%s DESC, lc."rank" ASC
		LIMIT ? OFFSET ?
	`, column)

	rows, err := s.db.QueryContext(ctx, query, string(period), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		var id, cost string
		var rankChange *int
		if err := rows.Scan(&id, &e.Rank, &e.TotalTokens, &cost, &e.StreakDays, &rankChange, &e.Username, &e.DisplayName); err != nil {
			return nil, 0, fmt.Errorf("scanning leaderboard entry: %w", err)
		}
		if e.UserID, err = uuid.Parse(id); err != nil {
			return nil, 0, fmt.Errorf("parsing leaderboard user id: %w", err)
		}
		if e.TotalCost, err = decimal.NewFromString(cost); err != nil {
			return nil, 0, fmt.Errorf("parsing leaderboard cost: %w", err)
		}
		e.Period = period
		e.RankChange = rankChange
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
