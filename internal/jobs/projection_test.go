package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/require"

	"herdbook.io/herdbook/internal/eventstore"
	"herdbook.io/herdbook/internal/pkg/logger"
	"herdbook.io/herdbook/internal/pkg/worker"
	"herdbook.io/herdbook/internal/testutil"
)

func init() {
	// Initialize logger for tests
	_ = logger.Init("error", "json")
}

func newTestStore(t *testing.T, prefix string) *eventstore.Store {
	t.Helper()
	ctx := context.Background()

	pool := testutil.OpenPGXPool(t, prefix)
	require.NoError(t, eventstore.EnsureSchema(ctx, pool))

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize: 5,
		HookPoolSize:    5,
	})
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)

	return eventstore.NewStore(pool, pools, eventstore.DefaultOptions())
}

func TestProjectionArgs_Kind(t *testing.T) {
	require.Equal(t, "projection_dispatch", ProjectionArgs{}.Kind())
}

func TestProjectionArgs_InsertOpts(t *testing.T) {
	opts := ProjectionArgs{}.InsertOpts()
	require.Equal(t, 3, opts.MaxAttempts)
	require.True(t, opts.UniqueOpts.ByArgs)
	require.True(t, opts.UniqueOpts.ByQueue)
}

func TestProjectionWorker_Work(t *testing.T) {
	s := newTestStore(t, "projection_work")
	ctx := context.Background()

	rec, err := s.Append(ctx, eventstore.Event{
		ID:        "evt-proj-1",
		Type:      "note.created",
		SubjectID: "n1",
		UserID:    "user-1",
		Data:      map[string]interface{}{"title": "X"},
		Source:    eventstore.SourceAPI,
		Timestamp: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var got []string
	w := NewProjectionWorker(s, func(ctx context.Context, r *eventstore.EventRecord) error {
		got = append(got, r.ID)
		return nil
	})

	job := &river.Job[ProjectionArgs]{
		JobRow: &rivertype.JobRow{Attempt: 1},
		Args:   ProjectionArgs{EventID: rec.ID},
	}
	require.NoError(t, w.Work(ctx, job))
	require.Equal(t, []string{"evt-proj-1"}, got)
}

func TestProjectionWorker_Work_UnknownEventDropsJob(t *testing.T) {
	s := newTestStore(t, "projection_unknown")

	w := NewProjectionWorker(s, func(ctx context.Context, r *eventstore.EventRecord) error {
		t.Fatal("projector must not run for unknown events")
		return nil
	})

	job := &river.Job[ProjectionArgs]{
		JobRow: &rivertype.JobRow{Attempt: 1},
		Args:   ProjectionArgs{EventID: "evt-missing"},
	}
	require.NoError(t, w.Work(context.Background(), job), "unknown event must not trigger retries")
}

func TestProjectionWorker_Work_ProjectorErrorFailsJob(t *testing.T) {
	s := newTestStore(t, "projection_error")
	ctx := context.Background()

	rec, err := s.Append(ctx, eventstore.Event{
		ID:        "evt-proj-2",
		Type:      "note.created",
		SubjectID: "n2",
		UserID:    "user-1",
		Source:    eventstore.SourceAPI,
		Timestamp: time.Date(2026, 3, 5, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	w := NewProjectionWorker(s, func(ctx context.Context, r *eventstore.EventRecord) error {
		return errors.New("read model unavailable")
	})

	job := &river.Job[ProjectionArgs]{
		JobRow: &rivertype.JobRow{Attempt: 1},
		Args:   ProjectionArgs{EventID: rec.ID},
	}
	require.Error(t, w.Work(ctx, job), "projector failure must surface for River retry")
}

type fakeInserter struct {
	inserted []ProjectionArgs
	err      error
}

func (f *fakeInserter) Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inserted = append(f.inserted, args.(ProjectionArgs))
	return &rivertype.JobInsertResult{}, nil
}

func TestNewEnqueueHook(t *testing.T) {
	inserter := &fakeInserter{}
	hook := NewEnqueueHook(inserter)

	rec := &eventstore.EventRecord{ID: "evt-hook-1"}
	require.NoError(t, hook(context.Background(), rec))
	require.Len(t, inserter.inserted, 1)
	require.Equal(t, "evt-hook-1", inserter.inserted[0].EventID)

	inserter.err = errors.New("queue unavailable")
	require.Error(t, hook(context.Background(), rec), "insert failure is reported to the notification loop")
}
