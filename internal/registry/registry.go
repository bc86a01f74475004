// Package registry holds the documents the engine can answer about: their
// outlines and their raw extracted text.
package registry

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dgallion1/regoutline/internal/outline"
	"github.com/dgallion1/regoutline/internal/search"
	"github.com/dgallion1/regoutline/internal/textnorm"
)

// ErrUnknownDocument is returned when no document has the requested ID.
var ErrUnknownDocument = errors.New("unknown document")

// Document is a regulatory document: an author-supplied outline plus the raw
// text extracted from its source file.
type Document struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Title    string            `json:"title,omitempty"`
	Chapters []outline.Chapter `json:"chapters"`
	Text     string            `json:"-"`
	Source   string            `json:"source,omitempty"`
	LoadedAt time.Time         `json:"loaded_at"`

	trees   []outline.ChapterTree
	textKey string
}

// Outline returns the built outline, building it on first use.
func (d *Document) Outline() []outline.ChapterTree {
	if d.trees == nil {
		d.trees = outline.BuildOutline(d.Chapters)
	}
	return d.trees
}

// TextKey identifies the document's text for the normalized-view cache.
func (d *Document) TextKey() string {
	if d.textKey == "" {
		d.textKey = textnorm.KeyFor(d.Text)
	}
	return d.textKey
}

// Summary is the listing form of a document.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Title     string    `json:"title,omitempty"`
	Chapters  int       `json:"chapters"`
	Sections  int       `json:"sections"`
	TextBytes int       `json:"text_bytes"`
	LoadedAt  time.Time `json:"loaded_at"`
}

func (d *Document) Summary() Summary {
	sections := 0
	for _, ch := range d.Chapters {
		sections += len(ch.Entries)
	}
	return Summary{
		ID:        d.ID,
		Name:      d.Name,
		Title:     d.Title,
		Chapters:  len(d.Chapters),
		Sections:  sections,
		TextBytes: len(d.Text),
		LoadedAt:  d.LoadedAt,
	}
}

// Source fetches documents the store does not hold yet.
type Source interface {
	FetchDocument(ctx context.Context, id string) (*Document, error)
}

// Store is a thread-safe in-memory document registry. Documents are
// replaced whole, never mutated in place.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]*Document
	fallback Source
	fetches  singleflight.Group
}

func NewStore(fallback Source) *Store {
	return &Store{
		docs:     make(map[string]*Document),
		fallback: fallback,
	}
}

// Put adds or replaces a document. The outline is built before the document
// becomes visible to readers.
func (s *Store) Put(doc *Document) {
	doc.Outline()
	doc.TextKey()
	if doc.LoadedAt.IsZero() {
		doc.LoadedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
}

// Get returns a held document, asking the fallback source on a miss.
// Concurrent misses for the same ID share one fetch. The fetch outlives any
// single caller's cancellation; each caller stops waiting when its own ctx
// is done.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	doc, ok := s.docs[id]
	s.mu.RUnlock()
	if ok {
		return doc, nil
	}
	if s.fallback == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := s.fetches.DoChan(id, func() (any, error) {
		doc, err := s.fallback.FetchDocument(fetchCtx, id)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", id, err)
		}
		if doc == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDocument, id)
		}
		if doc.ID == "" {
			doc.ID = id
		}
		s.Put(doc)
		return doc, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Document), nil
	}
}

// Delete removes a held document and returns it, or nil if it was absent.
// The fallback source is never consulted.
func (s *Store) Delete(id string) *Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.docs[id]
	delete(s.docs, id)
	return doc
}

// Len reports how many documents are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// List returns every held document ordered by ID.
func (s *Store) List() []*Document {
	s.mu.RLock()
	out := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Corpus returns the held documents in the shape the search ranker expects.
func (s *Store) Corpus() []search.Document {
	docs := s.List()
	out := make([]search.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, search.Document{ID: d.ID, Name: d.Name, Chapters: d.Outline()})
	}
	return out
}

// ContentID derives a stable document ID from content.
func ContentID(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])[:16]
}
