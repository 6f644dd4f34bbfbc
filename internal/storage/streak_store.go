package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GetStreak returns a user's streak row, nil when none exists yet
func (s *Store) GetStreak(ctx context.Context, userID uuid.UUID) (*Streak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, current_streak, longest_streak,
		       COALESCE(CAST(last_active_date AS VARCHAR), ''), timezone
		FROM streaks
		WHERE user_id = ?
	`, userID.String())

	var st Streak
	var id string
	err := row.Scan(&id, &st.CurrentStreak, &st.LongestStreak, &st.LastActiveDate, &st.Timezone)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying streak: %w", err)
	}
	if st.UserID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing streak user id: %w", err)
	}
	return &st, nil
}

// UpsertStreak persists the full streak state for a user
func (s *Store) UpsertStreak(ctx context.Context, st *Streak) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastActive any
	if st.LastActiveDate != "" {
		lastActive = st.LastActiveDate
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO streaks (user_id, current_streak, longest_streak, last_active_date, timezone, updated_at)
		VALUES (?, ?, ?, CAST(? AS DATE), ?, CURRENT_TIMESTAMP)
		ON CONFLICT (user_id) DO UPDATE SET
			current_streak   = excluded.current_streak,
			longest_streak   = excluded.longest_streak,
			last_active_date = excluded.last_active_date,
			timezone         = excluded.timezone,
			updated_at       = now()
	`, st.UserID.String(), st.CurrentStreak, st.LongestStreak, lastActive, st.Timezone)
	if err != nil {
		return fmt.Errorf("upserting streak: %w", err)
	}
	return nil
}

// GetStreaks loads streak rows for a set of users into a map
func (s *Store) GetStreaks(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Streak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[uuid.UUID]*Streak, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT user_id, current_streak, longest_streak,
		       COALESCE(CAST(last_active_date AS VARCHAR), ''), timezone
		FROM streaks
		WHERE user_id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("querying streaks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st Streak
		var id string
		if err := rows.Scan(&id, &st.CurrentStreak, &st.LongestStreak, &st.LastActiveDate, &st.Timezone); err != nil {
			return nil, fmt.Errorf("scanning streak: %w", err)
		}
		uid, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parsing streak user id: %w", err)
		}
		st.UserID = uid
		result[uid] = &st
	}
	return result, rows.Err()
}

// ListActiveStreaks returns every row with current_streak > 0
func (s *Store) ListActiveStreaks(ctx context.Context) ([]Streak, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, current_streak, longest_streak,
		       COALESCE(CAST(last_active_date AS VARCHAR), ''), timezone
		FROM streaks
		WHERE current_streak > 0
	`)
	if err != nil {
		return nil, fmt.Errorf("querying active streaks: %w", err)
	}
	defer rows.Close()

	var streaks []Streak
	for rows.Next() {
		var st Streak
		var id string
		if err := rows.Scan(&id, &st.CurrentStreak, &st.LongestStreak, &st.LastActiveDate, &st.Timezone); err != nil {
			return nil, fmt.Errorf("scanning streak: %w", err)
		}
		if st.UserID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parsing streak user id: %w", err)
		}
		streaks = append(streaks, st)
	}
	return streaks, rows.Err()
}

// CountStreaks returns (total rows, rows with current_streak strictly below
// the given value); both feed the streak percentile.
func (s *Store) CountStreaks(ctx context.Context, below int) (total, lower int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE current_streak < ?)
		FROM streaks
	`, below).Scan(&total, &lower)
	if err != nil {
		return 0, 0, fmt.Errorf("counting streaks: %w", err)
	}
	return total, lower, nil
}
