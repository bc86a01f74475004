package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/regoutline/internal/config"
	"github.com/dgallion1/regoutline/internal/engine"
	"github.com/dgallion1/regoutline/internal/outline"
	"github.com/dgallion1/regoutline/internal/registry"
	"github.com/dgallion1/regoutline/internal/textnorm"
)

const codeText = `Chapter 5 Structural Design
5.1 General
Buildings shall be designed for the loads in this chapter.
5.2 Loads
Dead loads shall include the weight of all materials.
5.3 Wind
Exterior walls shall resist wind pressure; see section 5.3 for the fire rating of walls.
`

func newTestServer(t *testing.T) (*Server, *registry.Store) {
	t.Helper()
	store := registry.NewStore(nil)
	store.Put(&registry.Document{
		ID:   "ibc",
		Name: "IBC",
		Chapters: []outline.Chapter{{
			Number: "5",
			Title:  "Structural Design",
			Entries: []outline.HeadingEntry{
				{Code: "5.1", Title: "General"},
				{Code: "5.2", Title: "Loads"},
				{Code: "5.3", Title: "Wind"},
				{Code: "5.4", Title: "Seismic"},
			},
		}},
		Text: codeText,
	})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{Port: "0", MaxUploadBytes: 1 << 20}
	eng := engine.New(textnorm.NewCache(8, time.Minute), 2)
	return NewServer(store, eng, log, cfg), store
}

func do(t *testing.T, srv http.Handler, method, target string, body io.Reader) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s %s response %q: %v", method, target, rec.Body.String(), err)
	}
	return rec, out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, out := do(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("expected ok, got %d %v", rec.Code, out)
	}
	if out["documents"] != float64(1) {
		t.Errorf("expected 1 document, got %v", out["documents"])
	}
}

func TestListDocuments(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, out := do(t, srv, http.MethodGet, "/api/documents", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	docs := out["documents"].([]any)
	if len(docs) != 1 || docs[0].(map[string]any)["id"] != "ibc" {
		t.Errorf("unexpected documents: %v", docs)
	}
}

func TestOutline(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, out := do(t, srv, http.MethodGet, "/api/documents/ibc/outline", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	chapters := out["chapters"].([]any)
	roots := chapters[0].(map[string]any)["sections"].([]any)
	if len(roots) != 4 {
		t.Errorf("expected 4 root sections, got %d", len(roots))
	}

	rec, out = do(t, srv, http.MethodGet, "/api/documents/nope/outline", nil)
	if rec.Code != http.StatusNotFound || out["not_found"] != true {
		t.Errorf("expected 404 not_found, got %d %v", rec.Code, out)
	}
}

func TestSection(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, out := do(t, srv, http.MethodGet, "/api/documents/ibc/sections/5.2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", rec.Code, out)
	}
	span := out["span"].(map[string]any)
	text := span["section_text"].(string)
	if !strings.HasPrefix(text, "5.2 Loads") || strings.Contains(text, "5.3") {
		t.Errorf("unexpected section text %q", text)
	}
	if span["truncated"] != false {
		t.Errorf("expected truncated=false, got %v", span["truncated"])
	}

	// By node key.
	rec, _ = do(t, srv, http.MethodGet, "/api/documents/ibc/sections/5-1", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for key lookup, got %d", rec.Code)
	}

	// In the outline but absent from the text.
	rec, out = do(t, srv, http.MethodGet, "/api/documents/ibc/sections/5.4", nil)
	if rec.Code != http.StatusNotFound || out["not_found"] != true {
		t.Errorf("expected 404 not_found, got %d %v", rec.Code, out)
	}

	rec, _ = do(t, srv, http.MethodGet, "/api/documents/ibc/sections/9.9", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown section, got %d", rec.Code)
	}
}

func TestSnippets(t *testing.T) {
	srv, _ := newTestServer(t)
	rec, out := do(t, srv, http.MethodPost, "/api/documents/ibc/snippets", strings.NewReader(`{"question":"dead loads weight"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", rec.Code, out)
	}
	snippets := out["snippets"].([]any)
	if len(snippets) == 0 || len(snippets) > 3 {
		t.Errorf("expected 1..3 snippets, got %d", len(snippets))
	}
	if out["not_addressed"] != false {
		t.Errorf("expected not_addressed=false, got %v", out["not_addressed"])
	}

	for _, body := range []string{`{}`, `{"question":"   "}`} {
		rec, _ = do(t, srv, http.MethodPost, "/api/documents/ibc/snippets", strings.NewReader(body))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for blank question %s, got %d", body, rec.Code)
		}
	}
}

func TestAsk(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, out := do(t, srv, http.MethodPost, "/api/ask", strings.NewReader(`{"question":"fire rating of exterior walls","documents":["ibc"]}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", rec.Code, out)
	}
	if out["not_addressed"] != false {
		t.Fatalf("expected evidence, got %v", out)
	}
	results := out["results"].([]any)
	cands := results[0].(map[string]any)["candidates"].([]any)
	if ref := cands[0].(map[string]any)["section_ref"]; ref != "5.3" {
		t.Errorf("expected section_ref 5.3, got %v", ref)
	}

	rec, out = do(t, srv, http.MethodPost, "/api/ask", strings.NewReader(`{"question":"elevator hoistway"}`))
	if rec.Code != http.StatusOK || out["not_addressed"] != true {
		t.Errorf("expected not_addressed, got %d %v", rec.Code, out)
	}

	rec, _ = do(t, srv, http.MethodPost, "/api/ask", strings.NewReader(`{"question":"walls","documents":["missing"]}`))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown document, got %d", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	srv, _ := newTestServer(t)

	rec, out := do(t, srv, http.MethodGet, "/api/search?q=5.2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", rec.Code, out)
	}
	if out["kind"] != "section" || out["node_key"] != "5-1" {
		t.Errorf("unexpected match %v", out)
	}

	rec, out = do(t, srv, http.MethodGet, "/api/search?q=plumbing", nil)
	if rec.Code != http.StatusNotFound || out["not_found"] != true {
		t.Errorf("expected 404 not_found, got %d %v", rec.Code, out)
	}

	rec, _ = do(t, srv, http.MethodGet, "/api/search", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", rec.Code)
	}
}

func TestKeywords(t *testing.T) {
	srv, _ := newTestServer(t)
	_, out := do(t, srv, http.MethodGet, "/api/keywords?q=fire+walls&max=2", nil)
	kws := out["keywords"].([]any)
	if len(kws) != 2 || kws[0] != "fire" || kws[1] != "walls" {
		t.Errorf("unexpected keywords %v", kws)
	}
}

func TestUploadAndDelete(t *testing.T) {
	srv, store := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "fire.md")
	io.WriteString(fw, "# 7.1 Scope\n\nApplies to all buildings.\n\n# 7.2 Ratings\n\nOne hour.\n")
	mw.WriteField("doc_id", "nfpa")
	mw.WriteField("outline", "- number: 7\n  title: Fire\n  sections:\n    - code: \"7.1\"\n      title: Scope\n    - code: \"7.2\"\n      title: Ratings\n")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 documents, got %d", store.Len())
	}

	rec2, out := do(t, srv, http.MethodGet, "/api/documents/nfpa/sections/7.1", nil)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %v", rec2.Code, out)
	}
	text := out["span"].(map[string]any)["section_text"].(string)
	if !strings.Contains(text, "Applies to all buildings.") || strings.Contains(text, "One hour") {
		t.Errorf("unexpected section text %q", text)
	}

	rec2, _ = do(t, srv, http.MethodDelete, "/api/documents/nfpa", nil)
	if rec2.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec2.Code)
	}
	rec2, _ = do(t, srv, http.MethodDelete, "/api/documents/nfpa", nil)
	if rec2.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec2.Code)
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name     string
		filename string
		outline  string
	}{
		{"unsupported type", "code.exe", "- number: 1\n  title: A\n"},
		{"missing outline", "code.txt", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body bytes.Buffer
			mw := multipart.NewWriter(&body)
			fw, _ := mw.CreateFormFile("file", tt.filename)
			io.WriteString(fw, "1.1 Scope")
			if tt.outline != "" {
				mw.WriteField("outline", tt.outline)
			}
			mw.Close()

			req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"../../etc/passwd": "passwd",
		"code.pdf":         "code.pdf",
		"":                 "unnamed",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
