package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wikithread/talkparse/internal/config"
	"github.com/wikithread/talkparse/internal/pipeline"
	"github.com/wikithread/talkparse/internal/thread"
)

// Server is the HTTP API server for talkparse.
type Server struct {
	router       chi.Router
	parser       *thread.Parser
	orchestrator *pipeline.Orchestrator
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(parser *thread.Parser, orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		parser:       parser,
		orchestrator: orch,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/parse", s.handleParse)
		r.Post("/api/parse/batch", s.handleBatchParse)
		r.Get("/api/parse/batch/{jobID}/status", s.handleBatchStatus)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
