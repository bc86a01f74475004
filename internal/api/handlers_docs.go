package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/regoutline/internal/engine"
	"github.com/dgallion1/regoutline/internal/evidence"
	"github.com/dgallion1/regoutline/internal/locate"
	"github.com/dgallion1/regoutline/internal/registry"
	"github.com/dgallion1/regoutline/internal/search"
)

// handleListDocuments lists every registered document.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.store.List()
	out := make([]registry.Summary, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Summary())
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

// handleDeleteDocument removes a document and its cached view.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	doc := s.store.Delete(docID)
	if doc == nil {
		notFound(w, "document not found: "+docID)
		return
	}
	s.engine.Forget(doc)
	s.log.Info("document deleted", "id", docID)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": docID})
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id": doc.ID,
		"name":        doc.Name,
		"title":       doc.Title,
		"chapters":    doc.Outline(),
	})
}

// handleSection returns the located text of one outline node. The key is a
// node key ("5-3") or a section code ("5.2.1").
func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	key := chi.URLParam(r, "key")
	if k, err := url.PathUnescape(key); err == nil {
		key = k
	}

	sec, err := s.engine.Section(doc, key)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

type questionRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleSnippets(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.document(w, r)
	if !ok {
		return
	}
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	snippets, err := s.engine.Snippets(doc, req.Question)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if snippets == nil {
		snippets = []evidence.Candidate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document_id":   doc.ID,
		"snippets":      snippets,
		"not_addressed": len(snippets) == 0,
	})
}

// document resolves the {docID} URL parameter, writing the error response
// itself when it fails.
func (s *Server) document(w http.ResponseWriter, r *http.Request) (*registry.Document, bool) {
	docID := chi.URLParam(r, "docID")
	doc, err := s.store.Get(r.Context(), docID)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return doc, true
}

// writeError maps engine errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrUnknownDocument),
		errors.Is(err, engine.ErrUnknownSection),
		errors.Is(err, locate.ErrNotFound),
		errors.Is(err, search.ErrNoMatch):
		notFound(w, err.Error())
	case errors.Is(err, evidence.ErrInvalidOptions):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("request failed", "error", err)
		jsonError(w, "internal error: "+err.Error(), http.StatusInternalServerError)
	}
}
