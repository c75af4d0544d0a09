package eventstore

import (
	"encoding/json"

	"github.com/jackc/pgx/v5"
)

// recordColumns is the canonical column list for every read path.
// Keep in sync with schemaDDL and scanRecord.
const recordColumns = `id, event_type, subject_id, subject_type, user_id, data, source,
    version, occurred_at, causation_id, correlation_id, request_id, created_at`

// scanRecord maps one persisted row to an EventRecord.
// It isolates the rest of the store from the column layout.
func scanRecord(row pgx.Row) (*EventRecord, error) {
	var (
		rec         EventRecord
		subjectType string
		source      string
		data        []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.Type,
		&rec.SubjectID,
		&subjectType,
		&rec.UserID,
		&data,
		&source,
		&rec.Version,
		&rec.Timestamp,
		&rec.CausationID,
		&rec.CorrelationID,
		&rec.RequestID,
		&rec.StoredAt,
	)
	if err != nil {
		return nil, err
	}
	rec.SubjectType = SubjectType(subjectType)
	rec.Source = Source(source)
	rec.Data = json.RawMessage(data)
	return &rec, nil
}

// collectRecords drains rows into records, surfacing the first scan error.
func collectRecords(rows pgx.Rows) ([]*EventRecord, error) {
	defer rows.Close()

	records := make([]*EventRecord, 0, 16)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
