package eventstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	apperrors "herdbook.io/herdbook/internal/pkg/errors"
	"herdbook.io/herdbook/internal/pkg/logger"
	"herdbook.io/herdbook/internal/pkg/worker"
)

// insertEventSQL persists one event atomically, assigning the next version in
// the subject stream. The unique constraint on (subject_id, version) makes
// postgres the authority for serializing concurrent writers on one subject:
// the losing writer gets a uniqueness violation, never a silent overwrite.
const insertEventSQL = `
INSERT INTO events (
    id, event_type, subject_id, subject_type, user_id, data, source,
    version, occurred_at, causation_id, correlation_id, request_id
)
SELECT $1, $2, $3, $4, $5, $6, $7,
       COALESCE((SELECT MAX(version) FROM events WHERE subject_id = $3), 0) + 1,
       $8, $9, $10, $11
RETURNING ` + recordColumns

// Options holds query defaults for a Store instance.
type Options struct {
	// UserStreamDays is the default time window for GetUserStream.
	UserStreamDays int
	// UserStreamLimit is the default row cap for GetUserStream.
	UserStreamLimit int
	// SearchDefaultLimit caps Search results when no limit is given.
	SearchDefaultLimit int
}

// DefaultOptions returns the standard query defaults.
func DefaultOptions() Options {
	return Options{
		UserStreamDays:     7,
		UserStreamLimit:    1000,
		SearchDefaultLimit: 100,
	}
}

// Store is the event store. It holds no durable state itself: postgres is the
// single source of truth, and the hook registry is the only in-process
// mutable state. Safe for concurrent use; no global lock serializes appends.
type Store struct {
	pool  *pgxpool.Pool
	pools *worker.Pools
	hooks *HookRegistry
	opts  Options
}

// NewStore creates a Store backed by the shared connection pool.
// Hook notification runs on the injected worker pools (no naked goroutines).
func NewStore(pool *pgxpool.Pool, pools *worker.Pools, opts Options) *Store {
	def := DefaultOptions()
	if opts.UserStreamDays <= 0 {
		opts.UserStreamDays = def.UserStreamDays
	}
	if opts.UserStreamLimit <= 0 {
		opts.UserStreamLimit = def.UserStreamLimit
	}
	if opts.SearchDefaultLimit <= 0 {
		opts.SearchDefaultLimit = def.SearchDefaultLimit
	}
	return &Store{
		pool:  pool,
		pools: pools,
		hooks: NewHookRegistry(),
		opts:  opts,
	}
}

// AddHook registers a callback for every successfully appended record.
func (s *Store) AddHook(fn Hook) HookID {
	return s.hooks.AddHook(fn)
}

// RemoveHook unregisters a previously added hook.
func (s *Store) RemoveHook(id HookID) {
	s.hooks.RemoveHook(id)
}

// Hooks exposes the registry for consumers that manage their own lifecycle.
func (s *Store) Hooks() *HookRegistry {
	return s.hooks
}

// Append validates, classifies, and persists one event, then notifies hooks
// out-of-band and returns the durable record.
//
// The append is successful once the insert commits; hook outcomes never
// affect the return value. A duplicate id or a version race on the subject
// stream yields a conflict error and nothing is written.
func (s *Store) Append(ctx context.Context, e Event) (*EventRecord, error) {
	ve, err := validateEvent(e)
	if err != nil {
		return nil, err
	}

	rec, err := s.insertEvent(ctx, s.pool, ve)
	if err != nil {
		return nil, err
	}

	s.notify(rec)
	return rec, nil
}

// AppendBatch validates every event first (all-or-nothing), then inserts all
// rows in one transaction. If any event fails validation or any insert
// conflicts, zero rows are persisted. Hooks fire once per event, in input
// order, after the transaction commits.
func (s *Store) AppendBatch(ctx context.Context, events []Event) ([]*EventRecord, error) {
	if len(events) == 0 {
		return []*EventRecord{}, nil
	}

	validated := make([]validatedEvent, 0, len(events))
	for i, e := range events {
		ve, err := validateEvent(e)
		if err != nil {
			if appErr, ok := apperrors.IsAppError(err); ok {
				return nil, appErr.WithParams(map[string]interface{}{
					"batch_index": i,
					"event_id":    e.ID,
				})
			}
			return nil, err
		}
		validated = append(validated, ve)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.Storage(err, "begin batch transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records := make([]*EventRecord, 0, len(events))
	for _, ve := range validated {
		rec, err := s.insertEvent(ctx, tx, ve)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperrors.Storage(err, "commit batch transaction")
	}

	s.notify(records...)
	return records, nil
}

// rowQuerier abstracts pool vs transaction for the insert path; both
// *pgxpool.Pool and pgx.Tx satisfy it.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// insertEvent runs the atomic insert and maps the returned row.
func (s *Store) insertEvent(ctx context.Context, q rowQuerier, ve validatedEvent) (*EventRecord, error) {
	e := ve.event

	subjectType := e.SubjectType
	if subjectType == "" {
		subjectType = ClassifySubjectType(e.Type)
	}

	row := q.QueryRow(ctx, insertEventSQL,
		e.ID,
		e.Type,
		e.SubjectID,
		string(subjectType),
		e.UserID,
		ve.data,
		string(e.Source),
		e.Timestamp,
		e.CausationID,
		e.CorrelationID,
		e.RequestID,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, translateInsertError(err, e)
	}
	return rec, nil
}

// translateInsertError maps a postgres fault to the store's error taxonomy.
func translateInsertError(err error, e Event) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
		conflict := apperrors.EventConflictf(e.ID, e.SubjectID, 0)
		switch pgErr.ConstraintName {
		case constraintEventsPK:
			conflict.Message = "event id already exists"
		case constraintSubjectVersionUnique:
			conflict.Message = "subject version collision, retry append"
		}
		return conflict
	}
	return apperrors.Storage(err, fmt.Sprintf("insert event %s", e.ID))
}

// notify fires every registered hook for each record on the hook worker pool.
// Failures and panics are isolated per hook invocation and logged; they are
// never surfaced to the appending caller and never suppress other hooks.
func (s *Store) notify(records ...*EventRecord) {
	hooks := s.hooks.snapshot()
	if len(hooks) == 0 {
		return
	}

	for _, rec := range records {
		for _, fn := range hooks {
			rec := rec
			fn := fn
			err := s.pools.SubmitDetached("hooks", func(ctx context.Context) {
				invokeHook(ctx, fn, rec)
			})
			if err != nil {
				logger.Warn("Hook notification dropped: worker pool unavailable",
					zap.String("event_id", rec.ID),
					zap.Error(err),
				)
			}
		}
	}
}

// invokeHook runs one hook with a panic boundary.
func invokeHook(ctx context.Context, fn Hook, rec *EventRecord) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Hook panicked",
				zap.String("event_id", rec.ID),
				zap.String("event_type", rec.Type),
				zap.Any("panic", p),
				zap.Stack("stack"),
			)
		}
	}()

	if err := fn(ctx, rec); err != nil {
		logger.Error("Hook failed",
			zap.String("event_id", rec.ID),
			zap.String("event_type", rec.Type),
			zap.Error(err),
		)
	}
}
