package server

import (
	"net/http"

	"github.com/scopeworks/discovery/store"
)

// handleDocumentCreate serves POST /api/documents for single document adds.
func (s *Server) handleDocumentCreate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		ProjectID string `json:"project_id"`
		store.DocumentInput
	}
	if readJSON(w, r, &body) != nil {
		return
	}
	if body.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	id, err := s.documents.Create(r.Context(), body.ProjectID, body.DocumentInput)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.emitEvent(r.Context(), body.ProjectID, store.EventDocumentAdded,
		"Document added: "+body.Name)
	s.logger.Infow("Document created",
		"document_id", shortID(id), "project_id", shortID(body.ProjectID), "name", body.Name)
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// handleDocument serves GET/DELETE /api/documents/{id}, PATCH .../status, and
// PATCH .../summary.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	parts := extractPathParts(r.URL.Path, "/api/documents/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "Missing document ID")
		return
	}
	documentID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		document, err := s.documents.GetByID(r.Context(), documentID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if document == nil {
			writeJSON(w, http.StatusNotFound, nil)
			return
		}
		writeJSON(w, http.StatusOK, document)

	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := s.documents.Delete(r.Context(), documentID); err != nil {
			writeStoreError(w, err)
			return
		}
		s.logger.Infow("Document deleted", "document_id", shortID(documentID))
		writeJSON(w, http.StatusOK, map[string]string{"id": documentID})

	case len(parts) == 2 && parts[1] == "status":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var body struct {
			Status store.DocumentStatus `json:"status"`
		}
		if readJSON(w, r, &body) != nil {
			return
		}
		if err := s.documents.UpdateStatus(r.Context(), documentID, body.Status); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": documentID, "status": string(body.Status)})

	case len(parts) == 2 && parts[1] == "summary":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var body struct {
			Summary string `json:"summary"`
		}
		if readJSON(w, r, &body) != nil {
			return
		}
		if err := s.documents.UpdateSummary(r.Context(), documentID, body.Summary); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": documentID})

	default:
		writeError(w, http.StatusNotFound, "Unknown document route")
	}
}

// handleDeliverable serves GET /api/deliverables/{id} and PATCH .../status.
func (s *Server) handleDeliverable(w http.ResponseWriter, r *http.Request) {
	parts := extractPathParts(r.URL.Path, "/api/deliverables/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "Missing deliverable ID")
		return
	}
	deliverableID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		deliverable, err := s.deliverables.GetByID(r.Context(), deliverableID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if deliverable == nil {
			writeJSON(w, http.StatusNotFound, nil)
			return
		}
		writeJSON(w, http.StatusOK, deliverable)

	case len(parts) == 2 && parts[1] == "status":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var body struct {
			Status store.DeliverableStatus `json:"status"`
		}
		if readJSON(w, r, &body) != nil {
			return
		}
		if err := s.deliverables.UpdateStatus(r.Context(), deliverableID, body.Status); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": deliverableID, "status": string(body.Status)})

	default:
		writeError(w, http.StatusNotFound, "Unknown deliverable route")
	}
}
