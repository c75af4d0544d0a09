package eventstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Constraint names used to tell a duplicate id apart from a version race.
const (
	constraintEventsPK             = "events_pkey"
	constraintSubjectVersionUnique = "events_subject_version_key"
)

// schemaDDL defines the single durable table owned by the store.
// Only the append pipeline may write to it.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS events (
    id             TEXT PRIMARY KEY,
    event_type     TEXT NOT NULL,
    subject_id     TEXT NOT NULL,
    subject_type   TEXT NOT NULL,
    user_id        TEXT NOT NULL,
    data           JSONB NOT NULL DEFAULT '{}'::jsonb,
    source         TEXT NOT NULL,
    version        BIGINT NOT NULL,
    occurred_at    TIMESTAMPTZ NOT NULL,
    causation_id   TEXT NOT NULL DEFAULT '',
    correlation_id TEXT NOT NULL DEFAULT '',
    request_id     TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT events_subject_version_key UNIQUE (subject_id, version)
);

CREATE INDEX IF NOT EXISTS events_user_time_idx ON events (user_id, occurred_at DESC);
CREATE INDEX IF NOT EXISTS events_correlation_idx ON events (correlation_id) WHERE correlation_id <> '';
CREATE INDEX IF NOT EXISTS events_type_idx ON events (event_type);
CREATE INDEX IF NOT EXISTS events_occurred_idx ON events (occurred_at DESC);
`

// EnsureSchema creates the events table and its indexes if missing.
// Development convenience; production uses managed migrations.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create events schema: %w", err)
	}
	return nil
}
