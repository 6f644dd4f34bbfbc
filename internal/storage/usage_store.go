package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrSyncRace reports that a message id passed the dedup filter but was
// recorded by a concurrent sync before this batch committed. The caller
// re-runs the filter and recomputes its batch.
var ErrSyncRace = errors.New("message ids recorded by concurrent sync")

const upsertUsageRecord = `
INSERT INTO usage_records (
	id, user_id, date, source, model, machine_id,
	input_tokens, output_tokens, cache_read_tokens, cache_write_tokens, reasoning_tokens,
	cost, usage_timestamp, synced_at
)
VALUES (?, ?, CAST(? AS DATE), ?, ?, ?, ?, ?, ?, ?, ?, CAST(? AS DECIMAL(12,4)), ?, ?)
ON CONFLICT (user_id, date, source, model, machine_id) DO UPDATE SET
	input_tokens       = input_tokens + excluded.input_tokens,
	output_tokens      = output_tokens + excluded.output_tokens,
	cache_read_tokens  = cache_read_tokens + excluded.cache_read_tokens,
	cache_write_tokens = cache_write_tokens + excluded.cache_write_tokens,
	reasoning_tokens   = reasoning_tokens + excluded.reasoning_tokens,
	cost               = cost + excluded.cost,
	usage_timestamp    = excluded.usage_timestamp,
	synced_at          = excluded.synced_at,
	updated_at         = now()
`

// ApplySyncBatch commits one sync atomically: the dedup records and the
// accumulated counters land together or not at all. newIDs must have passed
// FilterNewMessageIDs; the filter is re-checked inside the transaction so a
// concurrent overlapping sync cannot double-count.
func (s *Store) ApplySyncBatch(ctx context.Context, userID uuid.UUID, source string, newIDs []string, rows []UsageUpsert, syncedAt time.Time) (newRecords, updatedRecords int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("beginning sync transaction: %w", err)
	}
	defer tx.Rollback()

	stillNew, err := filterNewMessageIDs(ctx, tx, userID, source, newIDs)
	if err != nil {
		return 0, 0, err
	}
	if len(stillNew) != len(newIDs) {
		return 0, 0, ErrSyncRace
	}

	if _, err := insertMessageIDs(ctx, tx, userID, source, newIDs, syncedAt); err != nil {
		return 0, 0, err
	}

	existing, err := countExistingBuckets(ctx, tx, rows)
	if err != nil {
		return 0, 0, err
	}

	for _, row := range rows {
		if err := upsertRow(ctx, tx, row); err != nil {
			return 0, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("committing sync transaction: %w", err)
	}
	return len(rows) - existing, existing, nil
}

// UpsertDailyRecords applies accumulating upserts outside a sync (backfills,
// imports). Same counting contract as ApplySyncBatch.
func (s *Store) UpsertDailyRecords(ctx context.Context, rows []UsageUpsert) (newRecords, updatedRecords int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := countExistingBuckets(ctx, tx, rows)
	if err != nil {
		return 0, 0, err
	}
	for _, row := range rows {
		if err := upsertRow(ctx, tx, row); err != nil {
			return 0, 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("committing upsert transaction: %w", err)
	}
	return len(rows) - existing, existing, nil
}

func upsertRow(ctx context.Context, q dbtx, row UsageUpsert) error {
	machineID := row.MachineID
	if machineID == "" {
		machineID = "default"
	}
	_, err := q.ExecContext(ctx, upsertUsageRecord,
		uuid.NewString(),
		row.UserID.String(),
		row.Date,
		row.Source,
		row.Model,
		machineID,
		row.InputTokens,
		row.OutputTokens,
		row.CacheReadTokens,
		row.CacheWriteTokens,
		row.ReasoningTokens,
		row.Cost.String(),
		row.UsageTimestamp,
		row.SyncedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting usage record: %w", err)
	}
	return nil
}

// countExistingBuckets is the single pre-check SELECT behind the
// new-vs-updated counting contract.
func countExistingBuckets(ctx context.Context, q dbtx, rows []UsageUpsert) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var clauses []string
	var args []any
	for _, row := range rows {
		machineID := row.MachineID
		if machineID == "" {
			machineID = "default"
		}
		clauses = append(clauses, "(user_id = ? AND date = CAST(? AS DATE) AND source = ? AND model = ? AND machine_id = ?)")
		args = append(args, row.UserID.String(), row.Date, row.Source, row.Model, machineID)
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM usage_records WHERE %s`, strings.Join(clauses, " OR "))
	var count int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting existing buckets: %w", err)
	}
	return count, nil
}

// GetUsageRecord fetches one daily bucket by its key, nil when absent
func (s *Store) GetUsageRecord(ctx context.Context, userID uuid.UUID, date, source, model, machineID string) (*UsageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, CAST(date AS VARCHAR), source, model, machine_id,
		       input_tokens, output_tokens, cache_read_tokens, cache_write_tokens, reasoning_tokens,
		       CAST(cost AS VARCHAR), usage_timestamp, synced_at, created_at, updated_at
		FROM usage_records
		WHERE user_id = ? AND date = CAST(? AS DATE) AND source = ? AND model = ? AND machine_id = ?
	`, userID.String(), date, source, model, machineID)

	var rec UsageRecord
	var id, uid, cost string
	err := row.Scan(&id, &uid, &rec.Date, &rec.Source, &rec.Model, &rec.MachineID,
		&rec.InputTokens, &rec.OutputTokens, &rec.CacheReadTokens, &rec.CacheWriteTokens, &rec.ReasoningTokens,
		&cost, &rec.UsageTimestamp, &rec.SyncedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying usage record: %w", err)
	}

	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing usage record id: %w", err)
	}
	if rec.UserID, err = uuid.Parse(uid); err != nil {
		return nil, fmt.Errorf("parsing usage record user id: %w", err)
	}
	if rec.Cost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parsing usage record cost: %w", err)
	}
	return &rec, nil
}

// AggregateUser rolls up one user's usage over a period window
func (s *Store) AggregateUser(ctx context.Context, userID uuid.UUID, period Period, now time.Time) (*UserAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT
			COALESCE(SUM(input_tokens + output_tokens + COALESCE(cache_read_tokens, 0) + COALESCE(cache_write_tokens, 0) + COALESCE(reasoning_tokens, 0)), 0),
			CAST(COALESCE(SUM(cost), 0) AS VARCHAR),
			COUNT(DISTINCT source),
			COUNT(DISTINCT date)
		FROM usage_records
		WHERE user_id = ?
	`
	args := []any{userID.String()}
	if cutoff, ok := period.Cutoff(now); ok {
		query += ` AND date >= CAST(? AS DATE)`
		args = append(args, cutoff)
	}

	agg := UserAggregate{UserID: userID}
	var cost string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&agg.TotalTokens, &cost, &agg.UniqueTools, &agg.UniqueDays); err != nil {
		return nil, fmt.Errorf("aggregating user usage: %w", err)
	}
	var err error
	if agg.TotalCost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("parsing aggregated cost: %w", err)
	}
	return &agg, nil
}

// UserCacheEfficiency returns the user's cache-read share over a window:
// cache_read / (cache_read + input) * 100 across all matching records.
func (s *Store) UserCacheEfficiency(ctx context.Context, userID uuid.UUID, period Period, now time.Time) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT COALESCE(SUM(cache_read_tokens), 0), COALESCE(SUM(input_tokens), 0)
		FROM usage_records
		WHERE user_id = ?
	`
	args := []any{userID.String()}
	if cutoff, ok := period.Cutoff(now); ok {
		query += ` AND date >= CAST(? AS DATE)`
		args = append(args, cutoff)
	}

	var cacheRead, input int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&cacheRead, &input); err != nil {
		return 0, fmt.Errorf("querying cache efficiency: %w", err)
	}
	if cacheRead+input == 0 {
		return 0, nil
	}
	return float64(cacheRead) / float64(cacheRead+input) * 100, nil
}
