// Package textnorm builds a lowercased, whitespace-collapsed view of raw
// document text that can be mapped back to offsets in the original string.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// View is a normalized rendering of a raw string.
//
// IndexMap has one entry per byte of Normalized; IndexMap[i] is the byte
// offset in the original string that produced Normalized[i]. A collapsed run
// of whitespace maps to the first whitespace byte of the run.
type View struct {
	Normalized string
	IndexMap   []int

	rawLen int
}

// Normalize lowercases raw and collapses every run of whitespace to a single
// space. It never fails.
func Normalize(raw string) *View {
	var b strings.Builder
	b.Grow(len(raw))
	index := make([]int, 0, len(raw))

	lastSpace := false
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRuneInString(raw[i:])

		if r == utf8.RuneError && size == 1 {
			// Invalid byte: copy through untouched so offsets stay aligned.
			b.WriteByte(raw[i])
			index = append(index, i)
			lastSpace = false
			i++
			continue
		}

		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteByte(' ')
				index = append(index, i)
				lastSpace = true
			}
			i += size
			continue
		}

		lower := unicode.ToLower(r)
		n := utf8.RuneLen(lower)
		if n < 0 {
			lower, n = r, size
		}
		b.WriteRune(lower)
		for k := 0; k < n; k++ {
			index = append(index, i)
		}
		lastSpace = false
		i += size
	}

	return &View{
		Normalized: b.String(),
		IndexMap:   index,
		rawLen:     len(raw),
	}
}

// Len returns the length of the normalized text in bytes.
func (v *View) Len() int {
	return len(v.Normalized)
}

// Original translates a normalized offset into an offset in the raw string.
// Offsets at or past the end of the normalized text map to the end of the
// raw string.
func (v *View) Original(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(v.IndexMap) {
		return v.rawLen
	}
	return v.IndexMap[i]
}

// Key folds s the same way Normalize does and trims the result. It is used
// for search terms that must be compared against a View.
func Key(s string) string {
	return strings.TrimSpace(Normalize(s).Normalized)
}
