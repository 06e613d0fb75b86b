package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/docqa/internal/ledger"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Ledger().Stats())
}

func (s *Server) handleQALog(w http.ResponseWriter, r *http.Request) {
	_, records := s.engine.Ledger().Snapshot()
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSaveStats(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Ledger().Save(r.Context()); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"saved": true,
		"stats": s.engine.Ledger().Stats(),
	})
}

func (s *Server) handleLoadStats(w http.ResponseWriter, r *http.Request) {
	err := s.engine.Ledger().Load(r.Context())
	if errors.Is(err, ledger.ErrCorruptState) {
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"loaded": true,
		"stats":  s.engine.Ledger().Stats(),
	})
}

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.llmStats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": s.engine.GeneratorName(),
		"stats":    s.llmStats.Snapshot(),
	})
}
