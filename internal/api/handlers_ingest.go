package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dgallion1/regoutline/internal/parser"
	"github.com/dgallion1/regoutline/internal/registry"
)

// handleUpload registers a document from a multipart form: "file" is the
// source document, "outline" its chapter list as YAML or JSON (a form file or
// a plain field). Optional fields: doc_id, name, title.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	// Read file data.
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	outlineData, err := formOutline(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	chapters, err := registry.ParseOutline(outlineData)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(chapters) == 0 {
		jsonError(w, "outline is required", http.StatusBadRequest)
		return
	}

	ex, err := parser.ForFile(filename, parser.Options{FallbackPdftotext: s.cfg.PDFFallbackPdftotext})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	text, err := ex.Extract(bytes.NewReader(data), filename)
	if err != nil {
		jsonError(w, "extract text: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	docID := r.FormValue("doc_id")
	if docID == "" {
		docID = registry.ContentID(data)
	}
	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(filename, filepath.Ext(filename))
	}

	doc := &registry.Document{
		ID:       docID,
		Name:     name,
		Title:    r.FormValue("title"),
		Chapters: chapters,
		Text:     text,
		Source:   filename,
	}
	if old := s.store.Delete(docID); old != nil {
		s.engine.Forget(old)
	}
	s.store.Put(doc)
	s.log.Info("document registered", "id", docID, "filename", filename, "chapters", len(chapters), "text_bytes", len(text))

	writeJSON(w, http.StatusCreated, doc.Summary())
}

// formOutline reads the outline from an "outline" form file, falling back to
// the "outline" form field.
func formOutline(r *http.Request) ([]byte, error) {
	f, _, err := r.FormFile("outline")
	if err == nil {
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, 8<<20))
		if err != nil {
			return nil, fmt.Errorf("read outline: %w", err)
		}
		return data, nil
	}
	if err != http.ErrMissingFile {
		return nil, fmt.Errorf("outline: %w", err)
	}
	return []byte(r.FormValue("outline")), nil
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
