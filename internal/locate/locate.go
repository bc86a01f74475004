// Package locate finds the verbatim text of an outline section inside the raw
// text of its document.
package locate

import (
	"errors"
	"regexp"
	"strings"

	"github.com/dgallion1/regoutline/internal/outline"
	"github.com/dgallion1/regoutline/internal/textnorm"
)

// MaxSpan bounds a section whose end boundary cannot be found, in normalized
// characters.
const MaxSpan = 12000

// ErrNotFound means none of the heading candidates occur in the text. Callers
// must not substitute text of their own.
var ErrNotFound = errors.New("section heading not found in document text")

// boundaryRe matches dotted section codes such as 5.3 or 12.1.4.2.
var boundaryRe = regexp.MustCompile(`\d+(?:\.\d+){1,6}`)

// Span is the located text of a section.
//
// Raw[StartOffset:EndOffset], trimmed, equals SectionText. MatchedHeading is
// the heading as it appears in the raw text. Truncated is set when no
// following section code was found and the span was cut at MaxSpan.
type Span struct {
	SectionText    string `json:"section_text"`
	MatchedHeading string `json:"matched_heading"`
	StartOffset    int    `json:"start_offset"`
	EndOffset      int    `json:"end_offset"`
	Truncated      bool   `json:"truncated"`
}

// HeadingCandidates lists the normalized strings tried, in priority order, to
// find where a section starts.
func HeadingCandidates(code, title string) []string {
	code = strings.TrimSpace(code)
	title = strings.TrimSpace(title)

	var raw []string
	if code != "" && title != "" {
		raw = append(raw, code+" "+title, code+"-"+title)
	}
	raw = append(raw, code, title)

	var out []string
	seen := make(map[string]bool, len(raw))
	for _, c := range raw {
		k := textnorm.Key(c)
		if len(k) < 2 || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// Locate returns the span of raw belonging to node. view must be the
// normalized view of raw; pass nil to have it computed.
func Locate(node *outline.Node, raw string, view *textnorm.View) (Span, error) {
	if node == nil {
		return Span{}, ErrNotFound
	}
	if view == nil {
		view = textnorm.Normalize(raw)
	}
	norm := view.Normalized

	start, heading := -1, ""
	for _, cand := range HeadingCandidates(node.Code, node.Title) {
		if i := strings.Index(norm, cand); i >= 0 {
			start, heading = i, cand
			break
		}
	}
	if start < 0 {
		return Span{}, ErrNotFound
	}

	end, truncated := sectionEnd(norm, start+len(heading), strings.ToLower(node.Code))
	if end-start > MaxSpan && truncated {
		end = start + MaxSpan
	}

	startOrig := view.Original(start)
	endOrig := view.Original(end)
	if endOrig < startOrig {
		endOrig = startOrig
	}
	headingEnd := min(view.Original(start+len(heading)), endOrig)

	return Span{
		SectionText:    strings.TrimSpace(raw[startOrig:endOrig]),
		MatchedHeading: strings.TrimSpace(raw[startOrig:headingEnd]),
		StartOffset:    startOrig,
		EndOffset:      endOrig,
		Truncated:      truncated && end < len(norm),
	}, nil
}

// sectionEnd scans norm from offset from for the first dotted code that is not
// code itself or one of its sub-codes. It returns the boundary offset, or the
// end of the text and true when there is none.
func sectionEnd(norm string, from int, code string) (int, bool) {
	if from > len(norm) {
		from = len(norm)
	}
	rest := norm[from:]
	for _, loc := range boundaryRe.FindAllStringIndex(rest, -1) {
		m := rest[loc[0]:loc[1]]
		if code != "" && (m == code || strings.HasPrefix(m, code+".")) {
			continue
		}
		return from + loc[0], false
	}
	return len(norm), true
}
