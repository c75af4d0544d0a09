// Package jobs contains River workers for downstream event delivery.
//
// Projection dispatch uses the claim-check pattern: the hook enqueues a job
// carrying only the event id, and the worker re-reads the durable record
// before fanning out. Projection logic itself lives with the consumers.
//
// Import Path: herdbook.io/herdbook/internal/jobs
package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"go.uber.org/zap"

	"herdbook.io/herdbook/internal/eventstore"
	apperrors "herdbook.io/herdbook/internal/pkg/errors"
	"herdbook.io/herdbook/internal/pkg/logger"
)

// ProjectionArgs carries only the event id (claim-check pattern).
type ProjectionArgs struct {
	EventID string `json:"event_id"`
}

// Kind returns the job kind identifier for projection dispatch.
func (ProjectionArgs) Kind() string { return "projection_dispatch" }

// InsertOpts returns default insert options for projection jobs.
func (ProjectionArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByArgs:  true,
			ByQueue: true,
		},
	}
}

// Projector consumes a committed record to update a read model.
type Projector func(ctx context.Context, record *eventstore.EventRecord) error

// ProjectionWorker re-reads the record by id and hands it to every
// registered projector. A projector error fails the job so River retries;
// records may therefore be delivered more than once.
type ProjectionWorker struct {
	river.WorkerDefaults[ProjectionArgs]
	store      *eventstore.Store
	projectors []Projector
}

// NewProjectionWorker creates a ProjectionWorker (manual DI).
func NewProjectionWorker(store *eventstore.Store, projectors ...Projector) *ProjectionWorker {
	return &ProjectionWorker{store: store, projectors: projectors}
}

// Work executes one projection dispatch.
func (w *ProjectionWorker) Work(ctx context.Context, job *river.Job[ProjectionArgs]) error {
	eventID := job.Args.EventID

	logger.Debug("Processing projection dispatch",
		zap.String("event_id", eventID),
		zap.Int64("attempt", int64(job.Attempt)),
	)

	record, err := w.store.FindByID(ctx, eventID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			// The row is gone only if the enqueuing append was rolled back
			// after the hook fired; drop the job instead of retrying forever.
			logger.Warn("Projection dispatch for unknown event, dropping",
				zap.String("event_id", eventID),
			)
			return nil
		}
		return fmt.Errorf("fetch event %s: %w", eventID, err)
	}

	for _, project := range w.projectors {
		if err := project(ctx, record); err != nil {
			return fmt.Errorf("project event %s: %w", eventID, err)
		}
	}
	return nil
}

// EventInserter is the subset of the River client used by the enqueue hook.
type EventInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// NewEnqueueHook returns a store hook that claim-checks every committed
// record into the projection queue. Insert failures are returned to the
// notification loop, which logs them; they never reach the appender.
func NewEnqueueHook(client EventInserter) eventstore.Hook {
	return func(ctx context.Context, record *eventstore.EventRecord) error {
		if _, err := client.Insert(ctx, ProjectionArgs{EventID: record.ID}, nil); err != nil {
			return fmt.Errorf("enqueue projection dispatch for %s: %w", record.ID, err)
		}
		return nil
	}
}
