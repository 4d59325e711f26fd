package server

import (
	"context"
	"net/http"
	"time"

	"github.com/scopeworks/discovery/store"
)

// handleProjects serves the project collection: upsert on POST, list on GET.
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleUpsertProject(w, r)
	case http.MethodGet:
		s.handleListProjects(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleUpsertProject(w http.ResponseWriter, r *http.Request) {
	var params store.UpsertProjectParams
	if readJSON(w, r, &params) != nil {
		return
	}

	id, created, err := s.projects.UpsertByScenarioID(r.Context(), params)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if created {
		s.emitEvent(r.Context(), id, store.EventProjectCreated,
			"Project created for scenario "+params.ScenarioID)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.logger.Infow("Project upserted",
		"project_id", shortID(id), "scenario_id", params.ScenarioID, "created", created)
	writeJSON(w, status, map[string]interface{}{"id": id, "created": created})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	var statusFilter *store.ProjectStatus
	if v := r.URL.Query().Get("status"); v != "" {
		status := store.ProjectStatus(v)
		statusFilter = &status
	}

	projects, err := s.projects.List(r.Context(), statusFilter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if projects == nil {
		projects = []*store.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// handleProjectSubtree dispatches everything under /api/projects/{id}.
func (s *Server) handleProjectSubtree(w http.ResponseWriter, r *http.Request) {
	parts := extractPathParts(r.URL.Path, "/api/projects/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "Missing project ID")
		return
	}
	projectID := parts[0]

	switch {
	case len(parts) == 1:
		s.handleProject(w, r, projectID)
	case len(parts) == 2:
		s.handleProjectAction(w, r, projectID, parts[1])
	case len(parts) == 3 && parts[2] == "sync":
		s.handleChildSync(w, r, projectID, parts[1])
	default:
		writeError(w, http.StatusNotFound, "Unknown project route")
	}
}

// handleProject serves GET (details fan-out) and DELETE (cascade) for one id.
func (s *Server) handleProject(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.Method {
	case http.MethodGet:
		details, err := s.projects.GetDetails(r.Context(), projectID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if details == nil {
			// Soft miss: null body, not an error envelope.
			writeJSON(w, http.StatusNotFound, nil)
			return
		}
		writeJSON(w, http.StatusOK, details)

	case http.MethodDelete:
		result, err := s.cascade.DeleteProject(r.Context(), projectID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleProjectAction(w http.ResponseWriter, r *http.Request, projectID, action string) {
	switch action {
	case "status":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var body struct {
			Status store.ProjectStatus `json:"status"`
		}
		if readJSON(w, r, &body) != nil {
			return
		}
		if err := s.projects.UpdateStatus(r.Context(), projectID, body.Status); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": projectID, "status": string(body.Status)})

	case "counts":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var patch store.CountPatch
		if readJSON(w, r, &patch) != nil {
			return
		}
		if err := s.projects.UpdateCounts(r.Context(), projectID, patch); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": projectID})

	case "confidence":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var body struct {
			Confidence float64 `json:"confidence"`
		}
		if readJSON(w, r, &body) != nil {
			return
		}
		if err := s.projects.UpdateConfidence(r.Context(), projectID, body.Confidence); err != nil {
			writeStoreError(w, err)
			return
		}
		s.emitEvent(r.Context(), projectID, store.EventConfidenceUpdated, "Confidence score updated")
		writeJSON(w, http.StatusOK, map[string]interface{}{"id": projectID, "confidence": body.Confidence})

	case "recount":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		project, err := s.projects.RecountChildren(r.Context(), projectID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		s.logger.Infow("Project counters recounted", "project_id", shortID(projectID))
		writeJSON(w, http.StatusOK, project)

	case "timeline":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		events, err := s.timeline.ListByProject(r.Context(), projectID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if events == nil {
			events = []*store.ContextEvent{}
		}
		writeJSON(w, http.StatusOK, events)

	case "events":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		s.handleAppendEvent(w, r, projectID)

	case "integration":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		// No integration backend is attached; resolution always misses.
		writeJSON(w, http.StatusOK, nil)

	case "gaps", "conflicts", "ambiguities", "questions", "documents", "deliverables":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		s.handleChildList(w, r, projectID, action)

	default:
		writeError(w, http.StatusNotFound, "Unknown project action: "+action)
	}
}

// emitEvent appends a timeline event after a successful mutation. Failures
// are logged, never surfaced: the mutation already committed.
func (s *Server) emitEvent(ctx context.Context, projectID string, eventType store.EventType, description string) {
	if _, err := s.timeline.Append(ctx, projectID, eventType, description, time.Time{}, nil); err != nil {
		s.logger.Warnw("Failed to append timeline event",
			"project_id", shortID(projectID), "event_type", eventType, "error", err)
	}
}
