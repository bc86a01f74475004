// Package evidence pulls ranked, non-overlapping snippets out of raw document
// text for a set of search terms.
package evidence

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/regoutline/internal/textnorm"
)

// ErrInvalidOptions reports a precondition violation such as a negative radius.
var ErrInvalidOptions = errors.New("invalid evidence options")

// Candidate is one snippet of document text with the nearest section
// reference preceding it. SectionRef is empty when none was found or when
// references were not requested.
type Candidate struct {
	SectionRef string `json:"section_ref"`
	Snippet    string `json:"snippet"`
	Offset     int    `json:"offset"`
}

// Options controls snippet collection.
type Options struct {
	Radius       int  // characters kept on each side of a match
	BucketWidth  int  // matches in the same bucket produce one snippet
	MaxResults   int  // stop after this many candidates
	WithSections bool // attach the nearest section reference
}

// QAOptions is the profile used for question-answering evidence.
func QAOptions() Options {
	return Options{Radius: 330, BucketWidth: 220, MaxResults: 6, WithSections: true}
}

// SnippetOptions is the profile used for plain keyword snippets.
func SnippetOptions() Options {
	return Options{Radius: 240, BucketWidth: 200, MaxResults: 3}
}

func (o Options) validate() error {
	if o.Radius < 0 {
		return fmt.Errorf("%w: radius %d", ErrInvalidOptions, o.Radius)
	}
	if o.BucketWidth <= 0 {
		return fmt.Errorf("%w: bucket width %d", ErrInvalidOptions, o.BucketWidth)
	}
	if o.MaxResults <= 0 {
		return fmt.Errorf("%w: max results %d", ErrInvalidOptions, o.MaxResults)
	}
	return nil
}

// Collect finds the first case-insensitive occurrence of each keyword, in
// keyword order, and returns a snippet around each one. A keyword whose match
// falls in a bucket that already produced a snippet is skipped. view must be
// the normalized view of raw; pass nil to have it computed.
func Collect(raw string, view *textnorm.View, keywords []string, opts Options) ([]Candidate, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" || len(keywords) == 0 {
		return nil, nil
	}
	if view == nil {
		view = textnorm.Normalize(raw)
	}

	buckets := make(map[int]bool)
	var out []Candidate
	for _, kw := range keywords {
		key := textnorm.Key(kw)
		if key == "" {
			continue
		}
		ni := strings.Index(view.Normalized, key)
		if ni < 0 {
			continue
		}
		idx := view.Original(ni)

		bucket := idx / opts.BucketWidth
		if buckets[bucket] {
			continue
		}
		buckets[bucket] = true

		c := Candidate{
			Snippet: SliceSnippetAround(raw, idx, opts.Radius),
			Offset:  idx,
		}
		if opts.WithSections {
			c.SectionRef = FindNearbySectionReference(raw, idx)
		}
		out = append(out, c)

		if len(out) >= opts.MaxResults {
			break
		}
	}
	return out, nil
}

// SliceSnippetAround returns raw[idx-radius : idx+radius], clamped to the
// text and to rune boundaries, with whitespace runs collapsed and trimmed.
func SliceSnippetAround(raw string, idx, radius int) string {
	start := max(idx-radius, 0)
	end := min(idx+radius, len(raw))
	if start >= end {
		return ""
	}
	for start > 0 && !utf8.RuneStart(raw[start]) {
		start--
	}
	for end < len(raw) && !utf8.RuneStart(raw[end]) {
		end++
	}
	return strings.Join(strings.Fields(raw[start:end]), " ")
}

var (
	sectionRefRe = regexp.MustCompile(`(?i)section\s+(\d+(?:\.\d+){1,5})`)
	dottedRefRe  = regexp.MustCompile(`\d+(?:\.\d+){1,5}`)
)

// Reference window around a match: mostly before it, a little after.
const (
	refLookBehind = 900
	refLookAhead  = 120
)

// FindNearbySectionReference returns the last section-like code in the window
// around idx. "Section 5.2" style references win over bare dotted numbers.
func FindNearbySectionReference(raw string, idx int) string {
	start := max(idx-refLookBehind, 0)
	end := min(idx+refLookAhead, len(raw))
	if start >= end {
		return ""
	}
	window := raw[start:end]

	if m := sectionRefRe.FindAllStringSubmatch(window, -1); len(m) > 0 {
		return m[len(m)-1][1]
	}
	if m := dottedRefRe.FindAllString(window, -1); len(m) > 0 {
		return m[len(m)-1]
	}
	return ""
}
