package server

import "net/http"

// setupRoutes configures all HTTP handlers on the mux.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.handleHealth))

	mux.HandleFunc("/api/projects", s.corsMiddleware(s.handleProjects))         // Upsert (POST) / list (GET)
	mux.HandleFunc("/api/projects/", s.corsMiddleware(s.handleProjectSubtree))  // Everything under a project id
	mux.HandleFunc("/api/gaps/", s.corsMiddleware(s.handleGap))                 // Get (GET), status patch (PATCH /status)
	mux.HandleFunc("/api/conflicts", s.corsMiddleware(s.handleConflictCreate))  // Single create (POST)
	mux.HandleFunc("/api/conflicts/", s.corsMiddleware(s.handleConflict))       // Get, status patch, resolution patch
	mux.HandleFunc("/api/ambiguities/", s.corsMiddleware(s.handleAmbiguity))    // Get, status patch, clarification patch
	mux.HandleFunc("/api/questions/", s.corsMiddleware(s.handleQuestion))       // Get, status patch, answer patch
	mux.HandleFunc("/api/documents", s.corsMiddleware(s.handleDocumentCreate))  // Single create (POST)
	mux.HandleFunc("/api/documents/", s.corsMiddleware(s.handleDocument))       // Get, delete, status patch, summary patch
	mux.HandleFunc("/api/deliverables/", s.corsMiddleware(s.handleDeliverable)) // Get, status patch
}

// corsMiddleware adds permissive CORS headers and answers preflight requests.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// handleHealth reports liveness plus a database ping.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
