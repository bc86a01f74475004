package search

import (
	"errors"
	"testing"

	"github.com/dgallion1/regoutline/internal/outline"
)

func TestScoreMatch_Tiers(t *testing.T) {
	tests := []struct {
		label, query string
		want         int
	}{
		{"Fire Protection", "fire protection", ScoreExact},
		{"Fire  Protection", " FIRE protection ", ScoreExact},
		{"Fire Protection Systems", "fire protection", ScorePrefix},
		{"Means of Egress", "egress", ScoreContains},
		{"Means of Egress", "stairs", 0},
		{"", "stairs", 0},
		{"Stairs", "", 0},
	}
	for _, tt := range tests {
		if got := ScoreMatch(tt.label, tt.query); got != tt.want {
			t.Errorf("ScoreMatch(%q, %q): expected %d, got %d", tt.label, tt.query, tt.want, got)
		}
	}
}

func TestCodeInQuery(t *testing.T) {
	if got := CodeInQuery("what does 5.2.1 require"); got != "5.2.1" {
		t.Errorf("expected 5.2.1, got %q", got)
	}
	if got := CodeInQuery("chapter 5"); got != "" {
		t.Errorf("expected no code, got %q", got)
	}
}

func corpus() []Document {
	return []Document{
		{
			ID:   "bc",
			Name: "Building Code",
			Chapters: outline.BuildOutline([]outline.Chapter{
				{Number: "5", Title: "Structural Design", Entries: []outline.HeadingEntry{
					{Code: "5.1", Title: "Scope"},
					{Code: "5.2", Title: "Loads"},
					{Code: "5.2.1", Title: "Dead Loads"},
				}},
				{Number: "7", Title: "Fire Safety", Entries: []outline.HeadingEntry{
					{Code: "7.1", Title: "Fire Doors"},
				}},
			}),
		},
		{
			ID:   "fc",
			Name: "Fire Code",
			Chapters: outline.BuildOutline([]outline.Chapter{
				{Number: "3", Title: "Loads", Entries: []outline.HeadingEntry{
					{Code: "3.1", Title: "General"},
				}},
			}),
		},
	}
}

func TestBest_SectionOutranksChapter(t *testing.T) {
	// Exact label plus the code boost beats every chapter and document.
	m, err := Best(corpus(), "5.2 loads")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Kind != KindSection || m.Label != "5.2 Loads" {
		t.Errorf("expected section 5.2 Loads, got %+v", m)
	}
	if m.Score != ScoreExact+BoostCode+BoostSection {
		t.Errorf("expected score %d, got %d", ScoreExact+BoostCode+BoostSection, m.Score)
	}
}

func TestBest_CodeBoostFromFreeText(t *testing.T) {
	m, err := Best(corpus(), "what does 5.2.1 say")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.NodeKey != "5-2" {
		t.Errorf("expected node 5-2, got %+v", m)
	}
	if m.Score != BoostCode+BoostSection {
		t.Errorf("expected code-only score %d, got %d", BoostCode+BoostSection, m.Score)
	}
}

func TestBest_TiesKeepFirstSeen(t *testing.T) {
	m, err := Best(corpus(), "loads")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Chapter "Loads" in the fire code scores 270; section "5.2 Loads" only
	// contains the query (80+90). Exact chapter wins.
	if m.Kind != KindChapter || m.DocumentID != "fc" {
		t.Errorf("expected fire code chapter, got %+v", m)
	}

	twins := []Document{
		{ID: "a", Name: "Energy Code"},
		{ID: "b", Name: "Energy Code"},
	}
	m, err = Best(twins, "energy code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.DocumentID != "a" {
		t.Errorf("expected first-seen document to win a tie, got %q", m.DocumentID)
	}
}

func TestBest_DocumentLevel(t *testing.T) {
	m, err := Best(corpus(), "fire code")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Kind != KindDocument || m.DocumentID != "fc" || m.Score != ScoreExact+BoostDocument {
		t.Errorf("expected document match on fire code, got %+v", m)
	}
}

func TestBest_NoMatch(t *testing.T) {
	for _, q := range []string{"plumbing", "", "   "} {
		if _, err := Best(corpus(), q); !errors.Is(err, ErrNoMatch) {
			t.Errorf("%q: expected ErrNoMatch, got %v", q, err)
		}
	}
}
