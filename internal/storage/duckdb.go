package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Store wraps the DuckDB connection. The RWMutex serializes writers: DuckDB
// is an embedded single-process store, so the write lock doubles as the
// advisory lock that keeps the sync dedup gate and the accumulating upserts
// race-free across request goroutines.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Options tune the connection pool
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

// DefaultOptions match the pool sizes used in production
func DefaultOptions() Options {
	return Options{MaxOpenConns: 5, MaxIdleConns: 10}
}

// NewStore opens (or creates) the database at dbPath and initializes the schema
func NewStore(dbPath string, opts Options) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if opts.MaxOpenConns <= 0 {
		opts = DefaultOptions()
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) initSchema(ctx context.Context) error {
	schemas := []string{
		schemaUsers,
		schemaSessions,
		schemaSyncedMessageIDs,
		schemaUsageRecords,
		schemaStreaks,
		schemaLeaderboardCache,
		schemaCommunityBenchmarks,
		indexSyncedMessageIDs,
		indexUsageRecords,
		indexSessions,
	}

	for _, schema := range schemas {
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("executing schema: %w", err)
		}
	}

	return nil
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so store helpers can run
// inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
