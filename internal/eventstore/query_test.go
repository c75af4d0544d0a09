package eventstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "herdbook.io/herdbook/internal/pkg/errors"
)

func TestGetSubjectStream_Options(t *testing.T) {
	s := newTestStore(t, "subject_stream_options")
	ctx := context.Background()

	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for i, eventType := range []string{
		"note.created", "note.updated", "note.updated", "note.archived",
	} {
		e := newStoreEvent(NewEventID(), eventType, "n1")
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		_, err := s.Append(ctx, e)
		require.NoError(t, err)
	}

	full, err := s.GetSubjectStream(ctx, "n1", SubjectStreamOptions{})
	require.NoError(t, err)
	require.Len(t, full, 4)
	for i, rec := range full {
		require.EqualValues(t, i+1, rec.Version, "replay order is ascending version")
	}

	ranged, err := s.GetSubjectStream(ctx, "n1", SubjectStreamOptions{
		FromVersion: 2,
		ToVersion:   3,
	})
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	require.EqualValues(t, 2, ranged[0].Version)
	require.EqualValues(t, 3, ranged[1].Version)

	typed, err := s.GetSubjectStream(ctx, "n1", SubjectStreamOptions{
		EventTypes: []string{"note.updated"},
	})
	require.NoError(t, err)
	require.Len(t, typed, 2)

	empty, err := s.GetSubjectStream(ctx, "never-written", SubjectStreamOptions{})
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty, "unknown subject yields empty slice, not an error")
}

func TestGetUserStream_WindowAndFilters(t *testing.T) {
	s := newTestStore(t, "user_stream")
	ctx := context.Background()

	now := time.Now().UTC()

	recent := newStoreEvent("u-recent", "note.created", "n1")
	recent.Timestamp = now.Add(-1 * time.Hour)
	_, err := s.Append(ctx, recent)
	require.NoError(t, err)

	stale := newStoreEvent("u-stale", "note.created", "n2")
	stale.Timestamp = now.AddDate(0, 0, -30)
	_, err = s.Append(ctx, stale)
	require.NoError(t, err)

	other := newStoreEvent("u-other", "relation.linked", "r1")
	other.UserID = "user-2"
	other.Timestamp = now.Add(-2 * time.Hour)
	_, err = s.Append(ctx, other)
	require.NoError(t, err)

	// Default 7-day window excludes the stale event and other users.
	stream, err := s.GetUserStream(ctx, "user-1", UserStreamOptions{})
	require.NoError(t, err)
	require.Len(t, stream, 1)
	require.Equal(t, "u-recent", stream[0].ID)

	// Widening the window brings the stale event back, newest first.
	stream, err = s.GetUserStream(ctx, "user-1", UserStreamOptions{Days: 60})
	require.NoError(t, err)
	require.Len(t, stream, 2)
	require.Equal(t, "u-recent", stream[0].ID)
	require.Equal(t, "u-stale", stream[1].ID)

	// Subject-type filter.
	stream, err = s.GetUserStream(ctx, "user-2", UserStreamOptions{
		SubjectTypes: []SubjectType{SubjectRelation},
	})
	require.NoError(t, err)
	require.Len(t, stream, 1)
	require.Equal(t, "u-other", stream[0].ID)

	// Limit caps the result.
	stream, err = s.GetUserStream(ctx, "user-1", UserStreamOptions{Days: 60, Limit: 1})
	require.NoError(t, err)
	require.Len(t, stream, 1)
}

func TestGetCorrelatedEvents_TimestampOrder(t *testing.T) {
	s := newTestStore(t, "correlated_events")
	ctx := context.Background()

	base := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

	// Appended deliberately out of timestamp order, across subjects and sources.
	c3 := newStoreEvent("c3", "maintenance.cleanup.finished", "sched-1")
	c3.Source = SourceSystem
	c3.CorrelationID = "c1"
	c3.Timestamp = base.Add(2 * time.Second)

	c1 := newStoreEvent("c1", "note.creation.requested", "n1")
	c1.Source = SourceAPI
	c1.CorrelationID = "c1"
	c1.Timestamp = base

	c2 := newStoreEvent("c2", "note.creation.completed", "n1")
	c2.Source = SourceAutomation
	c2.CorrelationID = "c1"
	c2.Timestamp = base.Add(1 * time.Second)

	for _, e := range []Event{c3, c1, c2} {
		_, err := s.Append(ctx, e)
		require.NoError(t, err)
	}

	chain, err := s.GetCorrelatedEvents(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, chain, 3)
	require.Equal(t, "c1", chain[0].ID)
	require.Equal(t, "c2", chain[1].ID)
	require.Equal(t, "c3", chain[2].ID)

	empty, err := s.GetCorrelatedEvents(ctx, "no-such-chain")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestSearch_FiltersCompose(t *testing.T) {
	s := newTestStore(t, "search_filters")
	ctx := context.Background()

	base := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	seed := []Event{
		{ID: "s1", Type: "note.created", SubjectID: "n1", UserID: "alice", Source: SourceAPI, Timestamp: base},
		{ID: "s2", Type: "note.updated", SubjectID: "n1", UserID: "alice", Source: SourceAPI, Timestamp: base.Add(time.Minute)},
		{ID: "s3", Type: "relation.linked", SubjectID: "r1", UserID: "bob", Source: SourceAutomation, Timestamp: base.Add(2 * time.Minute)},
		{ID: "s4", Type: "note.created", SubjectID: "n2", UserID: "bob", Source: SourceAPI, Timestamp: base.Add(3 * time.Minute)},
	}
	_, err := s.AppendBatch(ctx, seed)
	require.NoError(t, err)

	// Empty filter returns everything (under the default cap), newest first.
	all, err := s.Search(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, "s4", all[0].ID)
	require.Equal(t, "s1", all[3].ID)

	// Single filter.
	byUser, err := s.Search(ctx, Filter{UserID: "alice"})
	require.NoError(t, err)
	require.Len(t, byUser, 2)

	// AND composition.
	byUserAndType, err := s.Search(ctx, Filter{UserID: "bob", EventType: "note.created"})
	require.NoError(t, err)
	require.Len(t, byUserAndType, 1)
	require.Equal(t, "s4", byUserAndType[0].ID)

	bySubjectType, err := s.Search(ctx, Filter{SubjectType: SubjectRelation})
	require.NoError(t, err)
	require.Len(t, bySubjectType, 1)
	require.Equal(t, "s3", bySubjectType[0].ID)

	// Time range.
	windowed, err := s.Search(ctx, Filter{
		FromDate: base.Add(30 * time.Second),
		ToDate:   base.Add(150 * time.Second),
	})
	require.NoError(t, err)
	require.Len(t, windowed, 2)

	// Pagination.
	page1, err := s.Search(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.Equal(t, "s4", page1[0].ID)

	page2, err := s.Search(ctx, Filter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.Equal(t, "s2", page2[0].ID)

	// Count shares the filter shape, minus pagination.
	count, err := s.CountEvents(ctx, Filter{UserID: "alice", Limit: 1})
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestFindByID(t *testing.T) {
	s := newTestStore(t, "find_by_id")
	ctx := context.Background()

	_, err := s.Append(ctx, newStoreEvent("f1", "note.created", "n1"))
	require.NoError(t, err)

	rec, err := s.FindByID(ctx, "f1")
	require.NoError(t, err)
	require.Equal(t, "f1", rec.ID)

	_, err = s.FindByID(ctx, "missing")
	require.Error(t, err)
	require.True(t, apperrors.IsNotFound(err))
}
