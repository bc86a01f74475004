// Package search ranks documents, chapters and sections against a query for
// "jump to best match" navigation.
package search

import (
	"errors"
	"regexp"
	"strings"

	"github.com/dgallion1/regoutline/internal/outline"
	"github.com/dgallion1/regoutline/internal/textnorm"
)

// ErrNoMatch means no label in the corpus scored above zero.
var ErrNoMatch = errors.New("no outline entry matches the query")

// Label match tiers.
const (
	ScoreExact    = 200
	ScorePrefix   = 130
	ScoreContains = 80
)

// Per-level boosts added to a non-zero label score.
const (
	BoostDocument = 40
	BoostChapter  = 70
	BoostSection  = 90
	BoostCode     = 120
)

var codeTokenRe = regexp.MustCompile(`\d+(?:\.\d+)+`)

// ScoreMatch scores a candidate label against a query. Both are compared in
// normalized form; the highest applicable tier wins.
func ScoreMatch(label, query string) int {
	label = textnorm.Key(label)
	query = textnorm.Key(query)
	if label == "" || query == "" {
		return 0
	}
	switch {
	case label == query:
		return ScoreExact
	case strings.HasPrefix(label, query):
		return ScorePrefix
	case strings.Contains(label, query):
		return ScoreContains
	}
	return 0
}

// CodeInQuery returns the first dotted section code in a free-text query.
func CodeInQuery(query string) string {
	return codeTokenRe.FindString(query)
}

// Kind tells which level of the corpus a match came from.
type Kind string

const (
	KindDocument Kind = "document"
	KindChapter  Kind = "chapter"
	KindSection  Kind = "section"
)

// Document is one searchable entry of the corpus.
type Document struct {
	ID       string
	Name     string
	Chapters []outline.ChapterTree
}

// Match is the best-scoring corpus entry.
type Match struct {
	Kind          Kind                  `json:"kind"`
	DocumentID    string                `json:"document_id"`
	DocumentName  string                `json:"document_name"`
	ChapterNumber outline.ChapterNumber `json:"chapter_number,omitempty"`
	NodeKey       string                `json:"node_key,omitempty"`
	Label         string                `json:"label"`
	Score         int                   `json:"score"`
}

// Best returns the single highest-scoring document, chapter or section.
// Ties keep the first candidate seen in corpus order.
func Best(corpus []Document, query string) (Match, error) {
	if textnorm.Key(query) == "" {
		return Match{}, ErrNoMatch
	}
	code := CodeInQuery(query)

	var best Match
	consider := func(m Match) {
		if m.Score > best.Score {
			best = m
		}
	}

	for _, doc := range corpus {
		if s := ScoreMatch(doc.Name, query); s > 0 {
			consider(Match{
				Kind:         KindDocument,
				DocumentID:   doc.ID,
				DocumentName: doc.Name,
				Label:        doc.Name,
				Score:        s + BoostDocument,
			})
		}

		for _, ch := range doc.Chapters {
			if s := ScoreMatch(ch.Title, query); s > 0 {
				consider(Match{
					Kind:          KindChapter,
					DocumentID:    doc.ID,
					DocumentName:  doc.Name,
					ChapterNumber: ch.Number,
					Label:         ch.Title,
					Score:         s + BoostChapter,
				})
			}

			outline.Walk(ch.Roots, func(n *outline.Node) bool {
				s := ScoreMatch(n.Label(), query)
				if code != "" && n.Code == code {
					s += BoostCode
				}
				if s > 0 {
					consider(Match{
						Kind:          KindSection,
						DocumentID:    doc.ID,
						DocumentName:  doc.Name,
						ChapterNumber: ch.Number,
						NodeKey:       n.Key,
						Label:         n.Label(),
						Score:         s + BoostSection,
					})
				}
				return true
			})
		}
	}

	if best.Score <= 0 {
		return Match{}, ErrNoMatch
	}
	return best, nil
}
