package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/scopeworks/discovery/store"
)

// appendEventRequest is the body for POST /api/projects/{id}/events. A zero
// timestamp means the event is stamped server-side at insert time.
type appendEventRequest struct {
	EventType   store.EventType `json:"event_type"`
	Description string          `json:"description"`
	Timestamp   *int64          `json:"timestamp,omitempty"` // epoch millis
	Metadata    json.RawMessage `json:"metadata,omitempty"`
}

// handleAppendEvent records one immutable timeline event for a project.
func (s *Server) handleAppendEvent(w http.ResponseWriter, r *http.Request, projectID string) {
	var body appendEventRequest
	if readJSON(w, r, &body) != nil {
		return
	}

	var timestamp time.Time
	if body.Timestamp != nil {
		timestamp = time.UnixMilli(*body.Timestamp).UTC()
	}

	id, err := s.timeline.Append(r.Context(), projectID, body.EventType, body.Description, timestamp, body.Metadata)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
