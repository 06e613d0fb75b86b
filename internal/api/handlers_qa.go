package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgallion1/docqa/internal/index"
	"github.com/dgallion1/docqa/internal/ledger"
	"github.com/dgallion1/docqa/internal/llm"
	"github.com/dgallion1/docqa/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

const excerptChars = 300

type sourceView struct {
	Page    int     `json:"page"`
	Index   int     `json:"index"`
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

func sourceViews(results []index.Result) []sourceView {
	out := make([]sourceView, len(results))
	for i, r := range results {
		out[i] = sourceView{
			Page:    r.Chunk.Page,
			Index:   r.Chunk.Index,
			Score:   r.Score,
			Excerpt: excerpt(r.Chunk.Text, excerptChars),
		}
	}
	return out
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		jsonError(w, "q is required", http.StatusBadRequest)
		return
	}
	k := 0
	if v := r.URL.Query().Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, "k must be a positive integer", http.StatusBadRequest)
			return
		}
		k = n
	}

	results, err := s.engine.Search(q, k)
	if errors.Is(err, pipeline.ErrNotIngested) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": sourceViews(results),
	})
}

type askRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ans, err := s.engine.Ask(r.Context(), req.Query)
	var genErr *llm.GenerationError
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.As(err, &genErr):
		jsonError(w, "answer generation failed: "+genErr.Error(), http.StatusBadGateway)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"record_id": ans.RecordID,
		"answer":    ans.Text,
		"page":      ans.Page,
		"sources":   sourceViews(ans.Sources),
	})
}

type feedbackRequest struct {
	Verdict string `json:"verdict"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "recordID")
	var req feedbackRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	v, err := ledger.ParseVerdict(req.Verdict)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.engine.Feedback(r.Context(), id, v)
	var pe *ledger.PersistenceError
	switch {
	case errors.Is(err, ledger.ErrRecordNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, ledger.ErrFeedbackConflict):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	case errors.As(err, &pe):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":     pe.Error(),
			"record_id": id,
			"verdict":   v.String(),
			"persisted": false,
		})
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"record_id": id,
		"verdict":   v.String(),
		"persisted": true,
		"stats":     s.engine.Ledger().Stats(),
	})
}

func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
