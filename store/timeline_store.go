package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/scopeworks/discovery/errors"
)

// TimelineStore records a project's activity timeline. Events are append
// only: never updated, never individually deleted. They disappear only when
// the owning project is cascade-deleted.
type TimelineStore struct {
	db *sql.DB
}

// NewTimelineStore creates a new timeline store.
func NewTimelineStore(db *sql.DB) *TimelineStore {
	return &TimelineStore{db: db}
}

// Append inserts one immutable event. A zero timestamp defaults to now.
func (s *TimelineStore) Append(ctx context.Context, projectID string, eventType EventType, description string, timestamp time.Time, metadata json.RawMessage) (string, error) {
	if !eventType.IsValid() {
		return "", errors.NewInvalidRequestf("invalid event type %q", eventType)
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var metadataCol sql.NullString
	if len(metadata) > 0 {
		metadataCol = sql.NullString{String: string(metadata), Valid: true}
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO context_events (id, project_id, event_type, description, timestamp, metadata)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, projectID, eventType, description, toMillis(timestamp), metadataCol,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return "", errors.NewNotFoundf("project %s", projectID)
		}
		return "", errors.Wrap(err, "append context event")
	}
	return id, nil
}

// ListByProject returns the project's events ordered by timestamp
// descending; events sharing a timestamp keep their insertion order.
func (s *TimelineStore) ListByProject(ctx context.Context, projectID string) ([]*ContextEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, event_type, description, timestamp, metadata
		FROM context_events
		WHERE project_id = ?
		ORDER BY timestamp DESC, rowid ASC`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "list context events")
	}
	defer rows.Close()

	var events []*ContextEvent
	for rows.Next() {
		var e ContextEvent
		var timestamp int64
		var metadata sql.NullString

		if err := rows.Scan(&e.ID, &e.ProjectID, &e.EventType, &e.Description, &timestamp, &metadata); err != nil {
			return nil, errors.Wrap(err, "scan context event")
		}
		e.Timestamp = fromMillis(timestamp)
		if metadata.Valid {
			e.Metadata = json.RawMessage(metadata.String)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
