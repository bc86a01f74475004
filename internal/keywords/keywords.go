// Package keywords turns a free-text question into search terms.
package keywords

import (
	"strings"
)

// DefaultMaxTerms bounds the number of terms Extract returns.
const DefaultMaxTerms = 24

// Extract returns at most maxTerms distinct search terms for question, in
// discovery order: unigrams of three or more characters (plural tokens also
// add their singular), then bigrams of adjacent tokens at least seven
// characters long. maxTerms <= 0 means DefaultMaxTerms.
func Extract(question string, maxTerms int) []string {
	if maxTerms <= 0 {
		maxTerms = DefaultMaxTerms
	}

	tokens := Tokenize(question)
	if len(tokens) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var terms []string
	add := func(term string) {
		if term == "" || seen[term] {
			return
		}
		seen[term] = true
		terms = append(terms, term)
	}

	for _, tok := range tokens {
		if len(tok) < 3 {
			continue
		}
		add(tok)
		if len(tok) > 4 && strings.HasSuffix(tok, "s") {
			add(strings.TrimSuffix(tok, "s"))
		}
	}

	for i := 0; i+1 < len(tokens); i++ {
		bigram := tokens[i] + " " + tokens[i+1]
		if len(bigram) >= 7 {
			add(bigram)
		}
	}

	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	return terms
}

// Tokenize lowercases s, drops every character outside [a-z0-9] and
// whitespace, and splits on whitespace.
func Tokenize(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v':
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}
