package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FilterNewMessageIDs returns the subset of ids not yet recorded for
// (user, source). Ordering of the result is not guaranteed.
func (s *Store) FilterNewMessageIDs(ctx context.Context, userID uuid.UUID, source string, ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterNewMessageIDs(ctx, s.db, userID, source, ids)
}

func filterNewMessageIDs(ctx context.Context, q dbtx, userID uuid.UUID, source string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`
		SELECT message_id
		FROM synced_message_ids
		WHERE user_id = ? AND source = ? AND message_id IN (%s)
	`, placeholders)

	args := make([]any, 0, len(ids)+2)
	args = append(args, userID.String(), source)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying synced message ids: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning synced message id: %w", err)
		}
		seen[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating synced message ids: %w", err)
	}

	var fresh []string
	for _, id := range ids {
		if !seen[id] {
			fresh = append(fresh, id)
		}
	}
	return fresh, nil
}

// InsertMessageIDs records ids for (user, source), skipping any already
// present. Returns the count actually inserted; idempotent under retries.
func (s *Store) InsertMessageIDs(ctx context.Context, userID uuid.UUID, source string, ids []string, syncedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertMessageIDs(ctx, s.db, userID, source, ids, syncedAt)
}

func insertMessageIDs(ctx context.Context, q dbtx, userID uuid.UUID, source string, ids []string, syncedAt time.Time) (int, error) {
	inserted := 0
	for _, id := range ids {
		res, err := q.ExecContext(ctx, `
			INSERT INTO synced_message_ids (id, user_id, source, message_id, synced_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id, source, message_id) DO NOTHING
		`, uuid.NewString(), userID.String(), source, id, syncedAt)
		if err != nil {
			return inserted, fmt.Errorf("inserting synced message id: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

// PruneMessageIDsBefore deletes dedup records older than the cutoff.
// Retention is an operator concern; nothing in the core depends on it.
func (s *Store) PruneMessageIDsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM synced_message_ids WHERE synced_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning synced message ids: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
