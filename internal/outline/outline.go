// Package outline turns flat, author-supplied heading lists into a section tree.
package outline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ChapterNumber is a chapter identifier. Registries write it either as a
// number (5) or a string ("5", "A"); both decode to the same value.
type ChapterNumber string

func (n *ChapterNumber) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*n = ChapterNumber(strings.TrimSpace(s))
		return nil
	}
	var f json.Number
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("chapter number: %w", err)
	}
	*n = ChapterNumber(f.String())
	return nil
}

func (n *ChapterNumber) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("chapter number: expected scalar at line %d", value.Line)
	}
	*n = ChapterNumber(strings.TrimSpace(value.Value))
	return nil
}

func (n ChapterNumber) String() string { return string(n) }

// Int returns the numeric value of the chapter number, if it has one.
func (n ChapterNumber) Int() (int, bool) {
	v, err := strconv.Atoi(string(n))
	return v, err == nil
}

// HeadingEntry is one row of a chapter's heading list.
type HeadingEntry struct {
	Code  string `json:"code" yaml:"code"`
	Title string `json:"title" yaml:"title"`
}

// Chapter groups an ordered heading list under a chapter number and title.
type Chapter struct {
	Number  ChapterNumber  `json:"number" yaml:"number"`
	Title   string         `json:"title" yaml:"title"`
	Entries []HeadingEntry `json:"sections" yaml:"sections"`
}

// Node is one section in a built outline tree.
type Node struct {
	Key       string  `json:"key"`
	Code      string  `json:"code"`
	Title     string  `json:"title"`
	Level     int     `json:"level"`
	ParentKey string  `json:"parent_key,omitempty"`
	Children  []*Node `json:"children,omitempty"`
}

// Label is the display form of a node: "<code> <title>" or whichever is set.
func (n *Node) Label() string {
	return strings.TrimSpace(n.Code + " " + n.Title)
}

// NodeKey derives the stable key of the entry at position index of a chapter.
func NodeKey(chapter ChapterNumber, index int) string {
	return fmt.Sprintf("%s-%d", chapter, index)
}
