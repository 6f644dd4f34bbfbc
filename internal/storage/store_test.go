package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "burntop-test.duckdb")
	store, err := NewStore(dbPath, DefaultOptions())
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return store, func() { store.Close() }
}

func createTestUser(t *testing.T, store *Store, n int) uuid.UUID {
	t.Helper()

	u := &User{
		Email:    fmt.Sprintf("user%d@example.com", n),
		Username: fmt.Sprintf("user%d", n),
		IsPublic: true,
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u.ID
}
