// Package engine ties the document registry to the pure outline, locate and
// evidence packages, sharing one normalized view per document text.
package engine

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/regoutline/internal/evidence"
	"github.com/dgallion1/regoutline/internal/keywords"
	"github.com/dgallion1/regoutline/internal/locate"
	"github.com/dgallion1/regoutline/internal/outline"
	"github.com/dgallion1/regoutline/internal/registry"
	"github.com/dgallion1/regoutline/internal/textnorm"
)

// ErrUnknownSection is returned when a key or code names no outline node.
var ErrUnknownSection = errors.New("unknown section")

// DefaultConcurrency bounds Ask when no limit is configured.
const DefaultConcurrency = 4

type Engine struct {
	views       *textnorm.Cache
	concurrency int
}

// New returns an engine backed by views. A nil cache normalizes on every
// call; concurrency <= 0 uses DefaultConcurrency.
func New(views *textnorm.Cache, concurrency int) *Engine {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Engine{views: views, concurrency: concurrency}
}

// View returns the normalized view of a document's text.
func (e *Engine) View(doc *registry.Document) *textnorm.View {
	return e.views.View(doc.TextKey(), doc.Text)
}

// Forget drops a document's cached view.
func (e *Engine) Forget(doc *registry.Document) {
	if e.views != nil {
		e.views.Forget(doc.TextKey())
	}
}

// Section is a located outline node.
type Section struct {
	DocumentID string                `json:"document_id"`
	Chapter    outline.ChapterNumber `json:"chapter"`
	Node       *outline.Node         `json:"node"`
	Span       locate.Span           `json:"span"`
}

// Section finds the node named by keyOrCode and locates its text.
// ErrUnknownSection means the outline has no such node; locate.ErrNotFound
// means the node exists but its heading never appears in the text.
func (e *Engine) Section(doc *registry.Document, keyOrCode string) (Section, error) {
	node, ch := outline.Lookup(doc.Outline(), keyOrCode)
	if node == nil {
		return Section{}, fmt.Errorf("%w: %s in %s", ErrUnknownSection, keyOrCode, doc.ID)
	}
	span, err := locate.Locate(node, doc.Text, e.View(doc))
	if err != nil {
		return Section{}, fmt.Errorf("locate %s in %s: %w", node.Label(), doc.ID, err)
	}
	return Section{DocumentID: doc.ID, Chapter: ch.Number, Node: node, Span: span}, nil
}

// Snippets returns plain excerpts for a question, without section references.
func (e *Engine) Snippets(doc *registry.Document, question string) ([]evidence.Candidate, error) {
	kws := keywords.Extract(question, keywords.DefaultMaxTerms)
	return evidence.Collect(doc.Text, e.View(doc), kws, evidence.SnippetOptions())
}

// Evidence returns question-answering excerpts with nearby section references.
func (e *Engine) Evidence(doc *registry.Document, question string) ([]evidence.Candidate, error) {
	kws := keywords.Extract(question, keywords.DefaultMaxTerms)
	return evidence.Collect(doc.Text, e.View(doc), kws, evidence.QAOptions())
}

// DocumentEvidence is the evidence gathered from one document.
type DocumentEvidence struct {
	DocumentID   string               `json:"document_id"`
	DocumentName string               `json:"document_name"`
	Candidates   []evidence.Candidate `json:"candidates"`
}

// Answer is the evidence for a question across a document subset.
// NotAddressed is set when no document produced a candidate, so callers can
// say the documents do not address the question instead of guessing.
type Answer struct {
	Question     string             `json:"question"`
	Keywords     []string           `json:"keywords"`
	Results      []DocumentEvidence `json:"results"`
	NotAddressed bool               `json:"not_addressed"`
}

// Ask collects QA evidence from each document concurrently. Results keep
// the order of docs and omit documents without candidates.
func (e *Engine) Ask(ctx context.Context, docs []*registry.Document, question string) (Answer, error) {
	kws := keywords.Extract(question, keywords.DefaultMaxTerms)
	ans := Answer{Question: question, Keywords: kws, Results: []DocumentEvidence{}}
	if len(kws) == 0 || len(docs) == 0 {
		ans.NotAddressed = true
		return ans, nil
	}

	// TextKey memoizes without locking and docs may repeat an entry, so
	// documents built outside a Store are warmed before the goroutines start.
	for _, doc := range docs {
		doc.TextKey()
	}

	found := make([][]evidence.Candidate, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cands, err := evidence.Collect(doc.Text, e.View(doc), kws, evidence.QAOptions())
			if err != nil {
				return fmt.Errorf("collect evidence from %s: %w", doc.ID, err)
			}
			found[i] = cands
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Answer{}, err
	}

	for i, cands := range found {
		if len(cands) == 0 {
			continue
		}
		ans.Results = append(ans.Results, DocumentEvidence{
			DocumentID:   docs[i].ID,
			DocumentName: docs[i].Name,
			Candidates:   cands,
		})
	}
	ans.NotAddressed = len(ans.Results) == 0
	return ans, nil
}
