// Package main provides demo-data seeding for the Herdbook event store.
//
// Seeding is idempotent: events carry stable ids, so a re-run hits the
// store's duplicate-id conflict and is treated as already applied.
//
// Import Path: herdbook.io/herdbook/cmd/seed
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"herdbook.io/herdbook/internal/config"
	"herdbook.io/herdbook/internal/eventstore"
	"herdbook.io/herdbook/internal/infrastructure"
	apperrors "herdbook.io/herdbook/internal/pkg/errors"
	"herdbook.io/herdbook/internal/pkg/logger"
	"herdbook.io/herdbook/internal/pkg/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(ctx); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: cfg.Worker.GeneralPoolSize,
		HookPoolSize:    cfg.Worker.HookPoolSize,
	})
	if err != nil {
		return fmt.Errorf("init worker pools: %w", err)
	}
	defer pools.Shutdown()

	store := eventstore.NewStore(db.Pool, pools, eventstore.Options{
		UserStreamDays:     cfg.Store.UserStreamDays,
		UserStreamLimit:    cfg.Store.UserStreamLimit,
		SearchDefaultLimit: cfg.Store.SearchDefaultLimit,
	})

	logger.Info("Starting event seeding...")

	seeded := 0
	for _, e := range demoEvents() {
		if _, err := store.Append(ctx, e); err != nil {
			if apperrors.IsConflict(err) {
				logger.Debug("Event already seeded", zap.String("event_id", e.ID))
				continue
			}
			return fmt.Errorf("seed event %s: %w", e.ID, err)
		}
		seeded++
	}

	logger.Info("Event seeding completed", zap.Int("seeded", seeded))
	return nil
}

// demoEvents returns a small correlated workflow across a note, a relation,
// and a chat thread, plus a system event.
func demoEvents() []eventstore.Event {
	base := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	const correlationID = "corr-demo-onboarding"

	return []eventstore.Event{
		{
			ID:            "evt-demo-0001",
			Type:          "note.creation.requested",
			SubjectID:     "note-welcome",
			UserID:        "user-demo",
			Data:          map[string]interface{}{"title": "Welcome", "body": "First note"},
			Source:        eventstore.SourceAPI,
			Timestamp:     base,
			CorrelationID: correlationID,
		},
		{
			ID:            "evt-demo-0002",
			Type:          "note.creation.completed",
			SubjectID:     "note-welcome",
			UserID:        "user-demo",
			Data:          map[string]interface{}{"title": "Welcome"},
			Source:        eventstore.SourceAutomation,
			Timestamp:     base.Add(1 * time.Second),
			CausationID:   "evt-demo-0001",
			CorrelationID: correlationID,
		},
		{
			ID:            "evt-demo-0003",
			Type:          "relation.linked",
			SubjectID:     "rel-note-thread",
			UserID:        "user-demo",
			Data:          map[string]interface{}{"from": "note-welcome", "to": "thread-general"},
			Source:        eventstore.SourceAutomation,
			Timestamp:     base.Add(2 * time.Second),
			CausationID:   "evt-demo-0002",
			CorrelationID: correlationID,
		},
		{
			ID:        "evt-demo-0004",
			Type:      "chat.message.posted",
			SubjectID: "thread-general",
			UserID:    "user-demo",
			Data:      map[string]interface{}{"text": "Note linked to thread"},
			Source:    eventstore.SourceAPI,
			Timestamp: base.Add(3 * time.Second),
		},
		{
			ID:        "evt-demo-0005",
			Type:      "maintenance.vacuum.scheduled",
			SubjectID: "scheduler-main",
			UserID:    "system",
			Data:      map[string]interface{}{"interval": "24h"},
			Source:    eventstore.SourceSystem,
			Timestamp: base.Add(4 * time.Second),
		},
	}
}
