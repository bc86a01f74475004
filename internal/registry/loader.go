package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/regoutline/internal/outline"
	"github.com/dgallion1/regoutline/internal/parser"
)

// Manifest is the on-disk description of a document: its identity, its
// outline, and where its source text lives.
type Manifest struct {
	ID       string            `yaml:"id" json:"id"`
	Name     string            `yaml:"name" json:"name"`
	Title    string            `yaml:"title,omitempty" json:"title,omitempty"`
	TextFile string            `yaml:"text_file" json:"text_file"`
	Chapters []outline.Chapter `yaml:"chapters" json:"chapters"`
}

// ParseOutline decodes a chapter list from YAML or JSON. A bare list of
// chapters and an object with a "chapters" key are both accepted.
func ParseOutline(data []byte) ([]outline.Chapter, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' || trimmed[0] == '{' {
		var chapters []outline.Chapter
		if err := json.Unmarshal(trimmed, &chapters); err == nil {
			return chapters, nil
		}
		var wrapped struct {
			Chapters []outline.Chapter `json:"chapters"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err == nil {
			return wrapped.Chapters, nil
		}
	}

	var chapters []outline.Chapter
	if err := yaml.Unmarshal(trimmed, &chapters); err == nil {
		return chapters, nil
	}
	var wrapped struct {
		Chapters []outline.Chapter `yaml:"chapters"`
	}
	if err := yaml.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("parse outline: %w", err)
	}
	return wrapped.Chapters, nil
}

// LoadManifest reads a YAML manifest and the text file it names. Relative
// text paths resolve against the manifest's directory.
func LoadManifest(path string, opts parser.Options) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.TextFile == "" {
		return nil, fmt.Errorf("manifest %s: text_file is required", path)
	}

	textPath := m.TextFile
	if !filepath.IsAbs(textPath) {
		textPath = filepath.Join(filepath.Dir(path), textPath)
	}
	text, err := parser.ExtractFile(textPath, opts)
	if err != nil {
		return nil, err
	}

	if m.ID == "" {
		m.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if m.Name == "" {
		m.Name = m.ID
	}
	return &Document{
		ID:       m.ID,
		Name:     m.Name,
		Title:    m.Title,
		Chapters: m.Chapters,
		Text:     text,
		Source:   path,
	}, nil
}

// LoadCSVPair loads an outline CSV and the source file sharing its base
// name, e.g. ibc.csv with ibc.txt or ibc.pdf.
func LoadCSVPair(csvPath string, opts parser.Options) (*Document, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open outline: %w", err)
	}
	chapters, err := ParseOutlineCSV(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", csvPath, err)
	}

	base := strings.TrimSuffix(csvPath, filepath.Ext(csvPath))
	textPath := ""
	for _, ext := range sortedExtensions() {
		if _, err := os.Stat(base + ext); err == nil {
			textPath = base + ext
			break
		}
	}
	if textPath == "" {
		return nil, fmt.Errorf("%s: no source text file next to outline", csvPath)
	}
	text, err := parser.ExtractFile(textPath, opts)
	if err != nil {
		return nil, err
	}

	id := filepath.Base(base)
	return &Document{
		ID:       id,
		Name:     id,
		Chapters: chapters,
		Text:     text,
		Source:   csvPath,
	}, nil
}

// LoadDir loads every *.yaml / *.yml manifest and every *.csv outline in dir
// into the store. A file that fails to load is logged and skipped.
func LoadDir(store *Store, dir string, opts parser.Options, log *slog.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read registry dir: %w", err)
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		var doc *Document
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			doc, err = LoadManifest(path, opts)
		case ".csv":
			doc, err = LoadCSVPair(path, opts)
		default:
			continue
		}
		if err != nil {
			log.Warn("skipping registry file", "path", path, "error", err)
			continue
		}
		store.Put(doc)
		loaded++
		log.Info("document loaded", "id", doc.ID, "chapters", len(doc.Chapters), "text_bytes", len(doc.Text))
	}
	return loaded, nil
}

func sortedExtensions() []string {
	exts := make([]string, 0, len(parser.SupportedExtensions))
	for ext := range parser.SupportedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
