package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/regoutline/internal/config"
	"github.com/dgallion1/regoutline/internal/engine"
	"github.com/dgallion1/regoutline/internal/registry"
)

// Server is the HTTP API server for regoutline.
type Server struct {
	router chi.Router
	store  *registry.Store
	engine *engine.Engine
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(store *registry.Store, eng *engine.Engine, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store:  store,
		engine: eng,
		log:    log,
		cfg:    cfg,
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
		r.Get("/documents", s.handleListDocuments)
		r.Post("/documents", s.handleUpload)
		r.Delete("/documents/{docID}", s.handleDeleteDocument)
		r.Get("/documents/{docID}/outline", s.handleOutline)
		r.Get("/documents/{docID}/sections/{key}", s.handleSection)
		r.Post("/documents/{docID}/snippets", s.handleSnippets)

		r.Post("/ask", s.handleAsk)
		r.Get("/search", s.handleSearch)
		r.Get("/keywords", s.handleKeywords)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"documents": s.store.Len(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// notFound marks the response so callers can tell "the text does not contain
// this" apart from a server fault.
func notFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, map[string]any{"error": msg, "not_found": true})
}
