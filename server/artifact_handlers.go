package server

import (
	"net/http"

	"github.com/scopeworks/discovery/store"
)

// handleChildSync serves POST /api/projects/{id}/{kind}/sync. The batch is
// additive: every item becomes a new row, existing rows are untouched.
func (s *Server) handleChildSync(w http.ResponseWriter, r *http.Request, projectID, kind string) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var ids []string
	var err error

	switch kind {
	case "gaps":
		var items []store.GapInput
		if readJSON(w, r, &items) != nil {
			return
		}
		ids, err = s.gaps.SyncAll(r.Context(), projectID, items)
	case "conflicts":
		var items []store.ConflictInput
		if readJSON(w, r, &items) != nil {
			return
		}
		ids, err = s.conflicts.SyncAll(r.Context(), projectID, items)
	case "ambiguities":
		var items []store.AmbiguityInput
		if readJSON(w, r, &items) != nil {
			return
		}
		ids, err = s.ambiguities.SyncAll(r.Context(), projectID, items)
	case "questions":
		var items []store.QuestionInput
		if readJSON(w, r, &items) != nil {
			return
		}
		ids, err = s.questions.SyncAll(r.Context(), projectID, items)
	case "documents":
		var items []store.DocumentInput
		if readJSON(w, r, &items) != nil {
			return
		}
		ids, err = s.documents.SyncAll(r.Context(), projectID, items)
	case "deliverables":
		var items []store.DeliverableInput
		if readJSON(w, r, &items) != nil {
			return
		}
		ids, err = s.deliverables.SyncAll(r.Context(), projectID, items)
	default:
		writeError(w, http.StatusNotFound, "Unknown artifact kind: "+kind)
		return
	}

	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.logger.Infow("Artifacts synced",
		"project_id", shortID(projectID), "kind", kind, "count", len(ids))
	writeJSON(w, http.StatusOK, map[string]interface{}{"ids": ids, "count": len(ids)})
}

// handleChildList serves GET /api/projects/{id}/{kind}?status=.
func (s *Server) handleChildList(w http.ResponseWriter, r *http.Request, projectID, kind string) {
	statusParam := r.URL.Query().Get("status")

	var result interface{}
	var err error

	switch kind {
	case "gaps":
		var filter *store.GapStatus
		if statusParam != "" {
			v := store.GapStatus(statusParam)
			filter = &v
		}
		gaps, lerr := s.gaps.ListByProject(r.Context(), projectID, filter)
		if gaps == nil {
			gaps = []*store.Gap{}
		}
		result, err = gaps, lerr
	case "conflicts":
		var filter *store.ConflictStatus
		if statusParam != "" {
			v := store.ConflictStatus(statusParam)
			filter = &v
		}
		conflicts, lerr := s.conflicts.ListByProject(r.Context(), projectID, filter)
		if conflicts == nil {
			conflicts = []*store.Conflict{}
		}
		result, err = conflicts, lerr
	case "ambiguities":
		var filter *store.AmbiguityStatus
		if statusParam != "" {
			v := store.AmbiguityStatus(statusParam)
			filter = &v
		}
		ambiguities, lerr := s.ambiguities.ListByProject(r.Context(), projectID, filter)
		if ambiguities == nil {
			ambiguities = []*store.Ambiguity{}
		}
		result, err = ambiguities, lerr
	case "questions":
		var filter *store.QuestionStatus
		if statusParam != "" {
			v := store.QuestionStatus(statusParam)
			filter = &v
		}
		questions, lerr := s.questions.ListByProject(r.Context(), projectID, filter)
		if questions == nil {
			questions = []*store.Question{}
		}
		result, err = questions, lerr
	case "documents":
		var filter *store.DocumentStatus
		if statusParam != "" {
			v := store.DocumentStatus(statusParam)
			filter = &v
		}
		documents, lerr := s.documents.ListByProject(r.Context(), projectID, filter)
		if documents == nil {
			documents = []*store.Document{}
		}
		result, err = documents, lerr
	case "deliverables":
		var filter *store.DeliverableStatus
		if statusParam != "" {
			v := store.DeliverableStatus(statusParam)
			filter = &v
		}
		deliverables, lerr := s.deliverables.ListByProject(r.Context(), projectID, filter)
		if deliverables == nil {
			deliverables = []*store.Deliverable{}
		}
		result, err = deliverables, lerr
	default:
		writeError(w, http.StatusNotFound, "Unknown artifact kind: "+kind)
		return
	}

	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleGap serves GET /api/gaps/{id} and PATCH /api/gaps/{id}/status.
func (s *Server) handleGap(w http.ResponseWriter, r *http.Request) {
	parts := extractPathParts(r.URL.Path, "/api/gaps/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "Missing gap ID")
		return
	}
	gapID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		gap, err := s.gaps.GetByID(r.Context(), gapID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if gap == nil {
			writeJSON(w, http.StatusNotFound, nil)
			return
		}
		writeJSON(w, http.StatusOK, gap)

	case len(parts) == 2 && parts[1] == "status":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var body struct {
			Status store.GapStatus `json:"status"`
		}
		if readJSON(w, r, &body) != nil {
			return
		}
		if err := s.gaps.UpdateStatus(r.Context(), gapID, body.Status); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": gapID, "status": string(body.Status)})

	default:
		writeError(w, http.StatusNotFound, "Unknown gap route")
	}
}

// handleConflictCreate serves POST /api/conflicts for single conflict adds
// outside a sync batch.
func (s *Server) handleConflictCreate(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var body struct {
		ProjectID string `json:"project_id"`
		store.ConflictInput
	}
	if readJSON(w, r, &body) != nil {
		return
	}
	if body.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	id, err := s.conflicts.Create(r.Context(), body.ProjectID, body.ConflictInput)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// handleConflict serves GET /api/conflicts/{id}, PATCH .../status, and
// PATCH .../resolution.
func (s *Server) handleConflict(w http.ResponseWriter, r *http.Request) {
	parts := extractPathParts(r.URL.Path, "/api/conflicts/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "Missing conflict ID")
		return
	}
	conflictID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		conflict, err := s.conflicts.GetByID(r.Context(), conflictID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if conflict == nil {
			writeJSON(w, http.StatusNotFound, nil)
			return
		}
		writeJSON(w, http.StatusOK, conflict)

	case len(parts) == 2 && parts[1] == "status":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var body struct {
			Status store.ConflictStatus `json:"status"`
		}
		if readJSON(w, r, &body) != nil {
			return
		}
		if err := s.conflicts.UpdateStatus(r.Context(), conflictID, body.Status); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": conflictID, "status": string(body.Status)})

	case len(parts) == 2 && parts[1] == "resolution":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var body struct {
			Resolution string `json:"resolution"`
		}
		if readJSON(w, r, &body) != nil {
			return
		}
		if err := s.conflicts.Resolve(r.Context(), conflictID, body.Resolution); err != nil {
			writeStoreError(w, err)
			return
		}
		if conflict, err := s.conflicts.GetByID(r.Context(), conflictID); err == nil && conflict != nil {
			s.emitEvent(r.Context(), conflict.ProjectID, store.EventConflictResolved, "Conflict resolved")
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": conflictID, "status": string(store.ConflictStatusResolved)})

	default:
		writeError(w, http.StatusNotFound, "Unknown conflict route")
	}
}

// handleAmbiguity serves GET /api/ambiguities/{id}, PATCH .../status, and
// PATCH .../clarification.
func (s *Server) handleAmbiguity(w http.ResponseWriter, r *http.Request) {
	parts := extractPathParts(r.URL.Path, "/api/ambiguities/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "Missing ambiguity ID")
		return
	}
	ambiguityID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		ambiguity, err := s.ambiguities.GetByID(r.Context(), ambiguityID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if ambiguity == nil {
			writeJSON(w, http.StatusNotFound, nil)
			return
		}
		writeJSON(w, http.StatusOK, ambiguity)

	case len(parts) == 2 && parts[1] == "status":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var body struct {
			Status store.AmbiguityStatus `json:"status"`
		}
		if readJSON(w, r, &body) != nil {
			return
		}
		if err := s.ambiguities.UpdateStatus(r.Context(), ambiguityID, body.Status); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": ambiguityID, "status": string(body.Status)})

	case len(parts) == 2 && parts[1] == "clarification":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var body struct {
			Clarification string `json:"clarification"`
		}
		if readJSON(w, r, &body) != nil {
			return
		}
		if err := s.ambiguities.Clarify(r.Context(), ambiguityID, body.Clarification); err != nil {
			writeStoreError(w, err)
			return
		}
		if ambiguity, err := s.ambiguities.GetByID(r.Context(), ambiguityID); err == nil && ambiguity != nil {
			s.emitEvent(r.Context(), ambiguity.ProjectID, store.EventAmbiguityClarified, "Ambiguity clarified")
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": ambiguityID, "status": string(store.AmbiguityStatusClarified)})

	default:
		writeError(w, http.StatusNotFound, "Unknown ambiguity route")
	}
}

// handleQuestion serves GET /api/questions/{id}, PATCH .../status, and
// PATCH .../answer.
func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	parts := extractPathParts(r.URL.Path, "/api/questions/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "Missing question ID")
		return
	}
	questionID := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		question, err := s.questions.GetByID(r.Context(), questionID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if question == nil {
			writeJSON(w, http.StatusNotFound, nil)
			return
		}
		writeJSON(w, http.StatusOK, question)

	case len(parts) == 2 && parts[1] == "status":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var body struct {
			Status store.QuestionStatus `json:"status"`
		}
		if readJSON(w, r, &body) != nil {
			return
		}
		if err := s.questions.UpdateStatus(r.Context(), questionID, body.Status); err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": questionID, "status": string(body.Status)})

	case len(parts) == 2 && parts[1] == "answer":
		if !requireMethod(w, r, http.MethodPatch) {
			return
		}
		var body struct {
			Answer string `json:"answer"`
		}
		if readJSON(w, r, &body) != nil {
			return
		}
		if err := s.questions.Answer(r.Context(), questionID, body.Answer); err != nil {
			writeStoreError(w, err)
			return
		}
		if question, err := s.questions.GetByID(r.Context(), questionID); err == nil && question != nil {
			s.emitEvent(r.Context(), question.ProjectID, store.EventQuestionAnswered, "Question answered")
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": questionID, "status": string(store.QuestionStatusAnswered)})

	default:
		writeError(w, http.StatusNotFound, "Unknown question route")
	}
}
