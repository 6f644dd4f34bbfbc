package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/burntop/burntop/internal/config"
	"github.com/burntop/burntop/internal/storage"
)

func cmdPrune(args []string) {
	if err := runPrune(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runPrune(args []string) error {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	retentionDays := fs.Int("retention-days", 90, "keep synced message ids newer than this many days")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *retentionDays < 1 {
		return fmt.Errorf("retention-days must be at least 1, got %d", *retentionDays)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	store, err := storage.NewStore(cfg.DatabasePath, storage.Options{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -*retentionDays)
	pruned, err := store.PruneMessageIDsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("pruning message ids: %w", err)
	}
	fmt.Printf("Pruned %d synced message ids older than %s\n", pruned, cutoff.Format("2006-01-02"))

	sessions, err := store.DeleteExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("deleting expired sessions: %w", err)
	}
	fmt.Printf("Deleted %d expired sessions\n", sessions)

	return nil
}
