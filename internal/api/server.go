package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docqa/internal/config"
	"github.com/dgallion1/docqa/internal/llm"
	"github.com/dgallion1/docqa/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docqa.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	engine       *pipeline.Engine
	llmStats     *llm.LLMStats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, llmStats *llm.LLMStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		engine:       orch.Engine(),
		llmStats:     llmStats,
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

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/ingest", s.handleIngest)
		r.Get("/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/document", s.handleDocument)

		r.Get("/search", s.handleSearch)
		r.Post("/ask", s.handleAsk)
		r.Post("/feedback/{recordID}", s.handleFeedback)

		r.Get("/stats", s.handleStats)
		r.Get("/qa-log", s.handleQALog)
		r.Post("/stats/save", s.handleSaveStats)
		r.Post("/stats/load", s.handleLoadStats)
		r.Get("/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"indexed":     s.engine.Document() != nil,
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
