package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const userColumns = `id, email, username, COALESCE(display_name, ''), COALESCE(bio, ''),
	COALESCE(location, ''), COALESCE(region, ''), COALESCE(website, ''), COALESCE(image, ''),
	is_public, COALESCE(password_hash, ''), created_at, updated_at, deleted_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var id string
	err := row.Scan(&id, &u.Email, &u.Username, &u.DisplayName, &u.Bio,
		&u.Location, &u.Region, &u.Website, &u.Image,
		&u.IsPublic, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	if u.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing user id: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a new user. Unique violations on email or username
// surface as errors containing the constraint detail.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, username, display_name, bio, location, region, website, image, is_public, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, u.ID.String(), u.Email, u.Username, nullIfEmpty(u.DisplayName), nullIfEmpty(u.Bio),
		nullIfEmpty(u.Location), nullIfEmpty(u.Region), nullIfEmpty(u.Website), nullIfEmpty(u.Image),
		u.IsPublic, nullIfEmpty(u.PasswordHash), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IsUniqueViolation reports whether a storage error came from a duplicate
// key. DuckDB has no typed constraint errors, so this is a message match.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint error")
}

// GetUserByID returns an active user, nil when absent or soft-deleted
func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id.String())
	return scanUser(row)
}

// GetUserByEmail returns an active user by email (case-sensitive)
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`, email)
	return scanUser(row)
}

// GetUsernames resolves usernames and display names for a set of users,
// skipping soft-deleted accounts.
func (s *Store) GetUsernames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][2]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[uuid.UUID][2]string, len(ids))
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
		SELECT id, username, COALESCE(display_name, '')
		FROM users
		WHERE id IN (%s) AND deleted_at IS NULL
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("querying usernames: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, username, displayName string
		if err := rows.Scan(&id, &username, &displayName); err != nil {
			return nil, fmt.Errorf("scanning username: %w", err)
		}
		uid, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parsing user id: %w", err)
		}
		result[uid] = [2]string{username, displayName}
	}
	return result, rows.Err()
}

// SoftDeleteUser marks a user deleted; every read path filters it out
func (s *Store) SoftDeleteUser(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id.String())
	if err != nil {
		return fmt.Errorf("soft deleting user: %w", err)
	}
	return nil
}

// CreateSession stores a bearer token for a user
func (s *Store) CreateSession(ctx context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at)
		VALUES (?, ?, ?)
	`, session.Token, session.UserID.String(), session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetSessionUser resolves a bearer token to its active user, nil when the
// token is unknown, expired, or the account is gone.
func (s *Store) GetSessionUser(ctx context.Context, token string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE deleted_at IS NULL AND id = (
			SELECT user_id FROM sessions WHERE token = ? AND expires_at > CURRENT_TIMESTAMP
		)
	`, token)
	return scanUser(row)
}

// DeleteExpiredSessions removes dead tokens; returns the count removed
func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
