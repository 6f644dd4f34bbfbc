// Package syncer drives one usage sync end to end: dedup filtering, pricing,
// daily-bucket accumulation and the streak refresh.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/burntop/burntop/internal/api"
	"github.com/burntop/burntop/internal/logger"
	"github.com/burntop/burntop/internal/pricing"
	"github.com/burntop/burntop/internal/storage"
	"github.com/burntop/burntop/internal/streak"
)

// maxBatchRetries bounds re-runs when a concurrent sync wins the dedup race
const maxBatchRetries = 3

// CatalogLoader yields the current pricing catalog; implementations may
// serve a stale or empty catalog rather than fail.
type CatalogLoader interface {
	Load(ctx context.Context) *pricing.Catalog
}

// Broadcaster pushes live sync events to connected clients. May be nil.
type Broadcaster interface {
	SyncReceived(userID uuid.UUID, totalTokens int64, totalCost string)
}

// Orchestrator owns the sync pipeline
type Orchestrator struct {
	store   *storage.Store
	catalog CatalogLoader
	streaks *streak.Engine
	hub     Broadcaster
}

// NewOrchestrator wires the pipeline; hub may be nil when no live clients
// are served.
func NewOrchestrator(store *storage.Store, catalog CatalogLoader, streaks *streak.Engine, hub Broadcaster) *Orchestrator {
	return &Orchestrator{store: store, catalog: catalog, streaks: streaks, hub: hub}
}

// bucketKey groups messages into daily records before the upsert
type bucketKey struct {
	date  string
	model string
}

type bucket struct {
	counts    pricing.TokenCounts
	timestamp time.Time
}

// ProcessSync applies one sync request for a user. Messages already seen for
// (user, source) are discarded without touching any counter, so replaying an
// identical payload is a no-op after the first call.
func (o *Orchestrator) ProcessSync(ctx context.Context, userID uuid.UUID, req *api.SyncRequest) (*api.SyncResponse, error) {
	source := strings.ToLower(strings.TrimSpace(req.Source))
	if source == "" {
		return nil, &api.ValidationError{Field: "source", Message: "source is required"}
	}
	if len(req.Messages) == 0 {
		return nil, &api.ValidationError{Field: "messages", Message: "at least one message is required"}
	}

	messages, ids, err := validateMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	log := logger.With("user_id", userID.String(), "source", source)

	newIDs, err := o.store.FilterNewMessageIDs(ctx, userID, source, ids)
	if err != nil {
		return nil, &api.StorageError{Operation: "filter sync messages", Cause: err}
	}
	if len(newIDs) == 0 {
		log.Info("sync contained no new messages", "messages_received", len(req.Messages))
		return o.emptyResponse(ctx, userID, len(req.Messages))
	}

	catalog := o.catalog.Load(ctx)
	syncedAt := parseSyncedAt(req.SyncedAt)

	var newRecords, updatedRecords, processed int
	var totalTokens int64
	totalCost := decimal.Zero
	var latestDate string

	for attempt := 0; ; attempt++ {
		rows, stats := o.buildUpserts(userID, source, req.MachineID, messages, newIDs, catalog, syncedAt)
		newRecords, updatedRecords, err = o.store.ApplySyncBatch(ctx, userID, source, newIDs, rows, syncedAt)
		if errors.Is(err, storage.ErrSyncRace) && attempt < maxBatchRetries {
			// Another sync committed part of this batch; refilter and retry
			newIDs, err = o.store.FilterNewMessageIDs(ctx, userID, source, newIDs)
			if err != nil {
				return nil, &api.StorageError{Operation: "refilter sync messages", Cause: err}
			}
			if len(newIDs) == 0 {
				return o.emptyResponse(ctx, userID, len(req.Messages))
			}
			continue
		}
		if err != nil {
			return nil, &api.StorageError{Operation: "apply sync batch", Cause: err}
		}
		processed = len(rows)
		totalTokens = stats.tokens
		totalCost = stats.cost
		latestDate = stats.latestDate
		break
	}

	// The batch is committed; the streak refresh can be retried on its own
	st, err := o.streaks.UpdateStreak(ctx, userID, latestDate, "")
	if err != nil {
		log.Error("streak update failed after sync commit", "error", err)
		st = &storage.Streak{}
	}

	if o.hub != nil {
		o.hub.SyncReceived(userID, totalTokens, totalCost.String())
	}

	log.Info("sync applied",
		"messages_received", len(req.Messages),
		"messages_synced", len(newIDs),
		"records_processed", processed,
		"new_records", newRecords,
		"updated_records", updatedRecords,
		"total_tokens", totalTokens)

	cost, _ := totalCost.Float64()
	return &api.SyncResponse{
		Success:          true,
		MessagesReceived: len(req.Messages),
		MessagesSynced:   len(newIDs),
		RecordsProcessed: processed,
		NewRecords:       newRecords,
		UpdatedRecords:   updatedRecords,
		Stats: api.SyncStats{
			TotalTokens:   totalTokens,
			TotalCost:     cost,
			CurrentStreak: st.CurrentStreak,
			LongestStreak: st.LongestStreak,
		},
		NewAchievements: []any{},
	}, nil
}

// validateMessages normalizes models to lowercase and rejects the whole
// batch on any malformed message. Duplicate ids within one payload collapse
// to their first occurrence.
func validateMessages(in []api.SyncMessage) ([]api.SyncMessage, []string, error) {
	seen := make(map[string]bool, len(in))
	messages := make([]api.SyncMessage, 0, len(in))
	ids := make([]string, 0, len(in))

	for i, m := range in {
		if m.ID == "" {
			return nil, nil, &api.ValidationError{Field: "messages", Message: fmt.Sprintf("message %d has no id", i)}
		}
		if m.InputTokens < 0 || m.OutputTokens < 0 || m.CacheReadTokens < 0 || m.CacheWriteTokens < 0 || m.ReasoningTokens < 0 {
			return nil, nil, &api.ValidationError{Field: "messages", Message: fmt.Sprintf("message %q has negative token counts", m.ID)}
		}
		if _, err := time.Parse(time.RFC3339, m.Timestamp); err != nil {
			return nil, nil, &api.ValidationError{Field: "messages", Message: fmt.Sprintf("message %q has unparseable timestamp %q", m.ID, m.Timestamp)}
		}
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		m.Model = strings.ToLower(m.Model)
		messages = append(messages, m)
		ids = append(ids, m.ID)
	}
	return messages, ids, nil
}

type batchStats struct {
	tokens     int64
	cost       decimal.Decimal
	latestDate string
}

// buildUpserts aggregates the still-new messages into daily buckets and
// prices each one. A model the catalog cannot resolve falls back to the
// built-in table, then to zero cost; tokens always count.
func (o *Orchestrator) buildUpserts(userID uuid.UUID, source, machineID string, messages []api.SyncMessage, newIDs []string, catalog *pricing.Catalog, syncedAt time.Time) ([]storage.UsageUpsert, batchStats) {
	isNew := make(map[string]bool, len(newIDs))
	for _, id := range newIDs {
		isNew[id] = true
	}

	buckets := make(map[bucketKey]*bucket)
	var order []bucketKey
	for _, m := range messages {
		if !isNew[m.ID] {
			continue
		}
		// The calendar date the client encoded before the 'T' is
		// authoritative for bucketing
		date, _, _ := strings.Cut(m.Timestamp, "T")
		key := bucketKey{date: date, model: m.Model}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			order = append(order, key)
		}
		b.counts.Add(pricing.TokenCounts{
			Input:      m.InputTokens,
			Output:     m.OutputTokens,
			CacheRead:  m.CacheReadTokens,
			CacheWrite: m.CacheWriteTokens,
			Reasoning:  m.ReasoningTokens,
		})
		if ts, err := time.Parse(time.RFC3339, m.Timestamp); err == nil && ts.After(b.timestamp) {
			b.timestamp = ts
		}
	}

	stats := batchStats{cost: decimal.Zero}
	rows := make([]storage.UsageUpsert, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		cost := o.priceBucket(key.model, b.counts, catalog)

		rows = append(rows, storage.UsageUpsert{
			UserID:           userID,
			Date:             key.date,
			Source:           source,
			Model:            key.model,
			MachineID:        machineID,
			InputTokens:      b.counts.Input,
			OutputTokens:     b.counts.Output,
			CacheReadTokens:  b.counts.CacheRead,
			CacheWriteTokens: b.counts.CacheWrite,
			ReasoningTokens:  b.counts.Reasoning,
			Cost:             cost,
			UsageTimestamp:   b.timestamp,
			SyncedAt:         syncedAt,
		})
		stats.tokens += b.counts.Total()
		stats.cost = stats.cost.Add(cost)
		if key.date > stats.latestDate {
			stats.latestDate = key.date
		}
	}
	return rows, stats
}

func (o *Orchestrator) priceBucket(model string, counts pricing.TokenCounts, catalog *pricing.Catalog) decimal.Decimal {
	entry, _, ok := catalog.Resolve(model)
	if !ok {
		entry, ok = pricing.LookupFallback(model)
	}
	if !ok {
		logger.Warn("no pricing for model, recording zero cost", "model", model)
		return decimal.Zero
	}
	cost, err := pricing.ComputeCost(counts, entry)
	if err != nil {
		logger.Warn("cost computation failed, recording zero cost", "model", model, "error", err)
		return decimal.Zero
	}
	return cost
}

// emptyResponse is the all-duplicates path: no mutation, current streak
// snapshot attached.
func (o *Orchestrator) emptyResponse(ctx context.Context, userID uuid.UUID, received int) (*api.SyncResponse, error) {
	var current, longest int
	if st, err := o.store.GetStreak(ctx, userID); err == nil && st != nil {
		current, longest = st.CurrentStreak, st.LongestStreak
	}
	return &api.SyncResponse{
		Success:          true,
		MessagesReceived: received,
		Stats: api.SyncStats{
			CurrentStreak: current,
			LongestStreak: longest,
		},
		NewAchievements: []any{},
	}, nil
}

func parseSyncedAt(raw string) time.Time {
	if raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Now().UTC()
}
