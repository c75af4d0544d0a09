// Package eventstore implements the append-only, validated, replayable event
// log that is the single point of entry for every state change in Herdbook.
//
// Writes go through the append pipeline (validate, classify, persist, notify);
// reads go through the stream query engine. Rows are never updated or deleted;
// corrections are modeled as new events.
//
// Import Path: herdbook.io/herdbook/internal/eventstore
package eventstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source identifies what produced an event.
type Source string

const (
	SourceAPI        Source = "api"
	SourceAutomation Source = "automation"
	SourceSync       Source = "sync"
	SourceMigration  Source = "migration"
	SourceSystem     Source = "system"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceAPI, SourceAutomation, SourceSync, SourceMigration, SourceSystem:
		return true
	}
	return false
}

// SubjectType is the coarse category of the subject an event is about.
type SubjectType string

const (
	SubjectEntity   SubjectType = "entity"
	SubjectRelation SubjectType = "relation"
	SubjectUser     SubjectType = "user"
	SubjectSystem   SubjectType = "system"
)

// Valid reports whether t is a known subject type.
func (t SubjectType) Valid() bool {
	switch t {
	case SubjectEntity, SubjectRelation, SubjectUser, SubjectSystem:
		return true
	}
	return false
}

// Event is the write-side input: an immutable fact submitted by a caller.
// Timestamp is set by the producer, not the store; Version is store-assigned.
type Event struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"` // dot-segmented, e.g. "note.creation.requested"
	SubjectID     string      `json:"subject_id"`
	SubjectType   SubjectType `json:"subject_type,omitempty"` // optional; classified from Type when empty
	UserID        string      `json:"user_id"`
	Data          interface{} `json:"data"` // arbitrary JSON-serializable payload
	Source        Source      `json:"source"`
	Timestamp     time.Time   `json:"timestamp"`
	CausationID   string      `json:"causation_id,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	RequestID     string      `json:"request_id,omitempty"`
}

// EventRecord is the durable, store-confirmed representation of a committed
// Event. It is returned from every read path and passed to hooks.
// Records are append-only: never mutated, never deleted.
type EventRecord struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	SubjectID     string          `json:"subject_id"`
	SubjectType   SubjectType     `json:"subject_type"`
	UserID        string          `json:"user_id"`
	Data          json.RawMessage `json:"data"`
	Source        Source          `json:"source"`
	Version       int64           `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	CausationID   string          `json:"causation_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	StoredAt      time.Time       `json:"stored_at"`
}

// NewEventID generates a time-sortable event id.
func NewEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("evt-%s", uuid.New().String())
	}
	return fmt.Sprintf("evt-%s", id.String())
}
