package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgallion1/regoutline/internal/keywords"
	"github.com/dgallion1/regoutline/internal/registry"
	"github.com/dgallion1/regoutline/internal/search"
)

type askRequest struct {
	Question  string   `json:"question"`
	Documents []string `json:"documents"`
}

// handleAsk gathers QA evidence for a question. An empty document list means
// every registered document.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	var docs []*registry.Document
	if len(req.Documents) == 0 {
		docs = s.store.List()
	} else {
		for _, id := range req.Documents {
			doc, err := s.store.Get(r.Context(), id)
			if err != nil {
				s.writeError(w, err)
				return
			}
			docs = append(docs, doc)
		}
	}

	ans, err := s.engine.Ask(r.Context(), docs, req.Question)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

// handleSearch returns the single best outline match for ?q=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}

	m, err := search.Best(s.store.Corpus(), q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleKeywords shows the terms a question turns into.
func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	maxTerms := keywords.DefaultMaxTerms
	if v := r.URL.Query().Get("max"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxTerms = n
		}
	}
	terms := keywords.Extract(q, maxTerms)
	if terms == nil {
		terms = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"question": q, "keywords": terms})
}
