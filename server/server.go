// Package server exposes the discovery knowledge store over HTTP.
package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/scopeworks/discovery/auth"
	"github.com/scopeworks/discovery/config"
	"github.com/scopeworks/discovery/store"
)

// Server wires the stores to the HTTP API.
type Server struct {
	db     *sql.DB
	logger *zap.SugaredLogger

	projects     *store.ProjectStore
	gaps         *store.GapStore
	conflicts    *store.ConflictStore
	ambiguities  *store.AmbiguityStore
	questions    *store.QuestionStore
	documents    *store.DocumentStore
	deliverables *store.DeliverableStore
	timeline     *store.TimelineStore
	cascade      *store.Cascade

	authMiddleware *auth.Middleware // nil when auth.enabled = false

	httpServer *http.Server
}

// New creates a server around an opened, migrated database.
func New(db *sql.DB, cfg *config.Config, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	s := &Server{
		db:           db,
		logger:       logger,
		projects:     store.NewProjectStore(db),
		gaps:         store.NewGapStore(db),
		conflicts:    store.NewConflictStore(db),
		ambiguities:  store.NewAmbiguityStore(db),
		questions:    store.NewQuestionStore(db),
		documents:    store.NewDocumentStore(db),
		deliverables: store.NewDeliverableStore(db),
		timeline:     store.NewTimelineStore(db),
		cascade:      store.NewCascade(db, logger),
	}

	if cfg.Auth.Enabled {
		s.authMiddleware = auth.NewMiddleware(auth.NewStore(db), cfg.Auth.RateLimitPerMinute, logger)
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	var handler http.Handler = mux
	if s.authMiddleware != nil {
		handler = s.authMiddleware.Wrap(mux)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Start serves HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Infow("Server listening",
		"addr", s.httpServer.Addr,
		"auth_enabled", s.authMiddleware != nil,
	)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Server shutting down")
	return s.httpServer.Shutdown(ctx)
}
