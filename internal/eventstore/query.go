package eventstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "herdbook.io/herdbook/internal/pkg/errors"
)

// Filter is the AND-composed filter shape shared by Search and CountEvents.
// Zero-valued fields impose no constraint. All values are bound as query
// parameters; nothing is string-interpolated.
type Filter struct {
	UserID        string
	EventType     string
	SubjectType   SubjectType
	SubjectID     string
	CorrelationID string
	FromDate      time.Time
	ToDate        time.Time
	Limit         int
	Offset        int
}

// SubjectStreamOptions narrows a subject replay.
type SubjectStreamOptions struct {
	FromVersion int64
	ToVersion   int64
	EventTypes  []string
}

// UserStreamOptions narrows a user timeline.
// Zero values fall back to the store's configured defaults.
type UserStreamOptions struct {
	Days         int
	Limit        int
	EventTypes   []string
	SubjectTypes []SubjectType
}

// GetSubjectStream returns the ordered event stream for one subject, oldest
// version first, for aggregate replay. A subject that has never been written
// yields an empty slice, not an error.
func (s *Store) GetSubjectStream(ctx context.Context, subjectID string, opts SubjectStreamOptions) ([]*EventRecord, error) {
	b := newQueryBuilder()
	b.where("subject_id = " + b.arg(subjectID))
	if opts.FromVersion > 0 {
		b.where("version >= " + b.arg(opts.FromVersion))
	}
	if opts.ToVersion > 0 {
		b.where("version <= " + b.arg(opts.ToVersion))
	}
	if len(opts.EventTypes) > 0 {
		b.where("event_type = ANY(" + b.arg(opts.EventTypes) + ")")
	}

	sql := b.selectSQL("version ASC", 0, 0)
	rows, err := s.pool.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, apperrors.Storage(err, "query subject stream")
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, apperrors.Storage(err, "scan subject stream")
	}
	return records, nil
}

// GetUserStream returns a user's recent events, newest first, within a
// rolling time window.
func (s *Store) GetUserStream(ctx context.Context, userID string, opts UserStreamOptions) ([]*EventRecord, error) {
	days := opts.Days
	if days <= 0 {
		days = s.opts.UserStreamDays
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = s.opts.UserStreamLimit
	}
	since := time.Now().AddDate(0, 0, -days)

	b := newQueryBuilder()
	b.where("user_id = " + b.arg(userID))
	b.where("occurred_at >= " + b.arg(since))
	if len(opts.EventTypes) > 0 {
		b.where("event_type = ANY(" + b.arg(opts.EventTypes) + ")")
	}
	if len(opts.SubjectTypes) > 0 {
		subjectTypes := make([]string, len(opts.SubjectTypes))
		for i, st := range opts.SubjectTypes {
			subjectTypes[i] = string(st)
		}
		b.where("subject_type = ANY(" + b.arg(subjectTypes) + ")")
	}

	sql := b.selectSQL("occurred_at DESC", limit, 0)
	rows, err := s.pool.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, apperrors.Storage(err, "query user stream")
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, apperrors.Storage(err, "scan user stream")
	}
	return records, nil
}

// GetCorrelatedEvents returns every event in one workflow chain, oldest
// first (causal order approximation by producer timestamp).
func (s *Store) GetCorrelatedEvents(ctx context.Context, correlationID string) ([]*EventRecord, error) {
	b := newQueryBuilder()
	b.where("correlation_id = " + b.arg(correlationID))

	sql := b.selectSQL("occurred_at ASC", 0, 0)
	rows, err := s.pool.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, apperrors.Storage(err, "query correlated events")
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, apperrors.Storage(err, "scan correlated events")
	}
	return records, nil
}

// Search returns events matching the filter, newest first, with limit/offset
// pagination. An empty filter returns the most recent events up to the
// configured default cap.
func (s *Store) Search(ctx context.Context, f Filter) ([]*EventRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = s.opts.SearchDefaultLimit
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	b := newQueryBuilder()
	applyFilter(b, f)

	sql := b.selectSQL("occurred_at DESC", limit, offset)
	rows, err := s.pool.Query(ctx, sql, b.args...)
	if err != nil {
		return nil, apperrors.Storage(err, "search events")
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, apperrors.Storage(err, "scan search results")
	}
	return records, nil
}

// CountEvents counts events matching the filter; pagination fields are ignored.
func (s *Store) CountEvents(ctx context.Context, f Filter) (int64, error) {
	b := newQueryBuilder()
	applyFilter(b, f)

	var count int64
	if err := s.pool.QueryRow(ctx, b.countSQL(), b.args...).Scan(&count); err != nil {
		return 0, apperrors.Storage(err, "count events")
	}
	return count, nil
}

// GetSubjectVersion returns the current highest version for a subject.
// ok is false when the subject has no events. Callers use this for their own
// optimistic-concurrency check before Append.
func (s *Store) GetSubjectVersion(ctx context.Context, subjectID string) (version int64, ok bool, err error) {
	var max *int64
	err = s.pool.QueryRow(ctx,
		`SELECT MAX(version) FROM events WHERE subject_id = $1`, subjectID,
	).Scan(&max)
	if err != nil {
		return 0, false, apperrors.Storage(err, "query subject version")
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

// FindByID returns the record with the given event id.
func (s *Store) FindByID(ctx context.Context, id string) (*EventRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM events WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.EventNotFoundf(id)
		}
		return nil, apperrors.Storage(err, "find event by id")
	}
	return rec, nil
}

// applyFilter translates the shared filter shape into WHERE conditions.
func applyFilter(b *queryBuilder, f Filter) {
	if f.UserID != "" {
		b.where("user_id = " + b.arg(f.UserID))
	}
	if f.EventType != "" {
		b.where("event_type = " + b.arg(f.EventType))
	}
	if f.SubjectType != "" {
		b.where("subject_type = " + b.arg(string(f.SubjectType)))
	}
	if f.SubjectID != "" {
		b.where("subject_id = " + b.arg(f.SubjectID))
	}
	if f.CorrelationID != "" {
		b.where("correlation_id = " + b.arg(f.CorrelationID))
	}
	if !f.FromDate.IsZero() {
		b.where("occurred_at >= " + b.arg(f.FromDate))
	}
	if !f.ToDate.IsZero() {
		b.where("occurred_at <= " + b.arg(f.ToDate))
	}
}

// queryBuilder composes parameterized WHERE clauses with positional
// placeholders. Filter values only ever travel through args.
type queryBuilder struct {
	conds []string
	args  []any
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{}
}

// arg binds a value and returns its placeholder.
func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *queryBuilder) where(cond string) {
	b.conds = append(b.conds, cond)
}

func (b *queryBuilder) whereSQL() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

func (b *queryBuilder) selectSQL(orderBy string, limit, offset int) string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(recordColumns)
	sb.WriteString(" FROM events")
	sb.WriteString(b.whereSQL())
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderBy)
	if limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.arg(limit))
	}
	if offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(b.arg(offset))
	}
	return sb.String()
}

func (b *queryBuilder) countSQL() string {
	return "SELECT COUNT(*) FROM events" + b.whereSQL()
}
