package outline

import "strings"

// SectionLevel infers the nesting depth of a heading code within a chapter.
//
//   - "Division ..." is level 1.
//   - A dotted code led by the chapter number has one level per extra segment
//     ("5.2" is 1, "5.2.3" is 2 under chapter 5), never below 1.
//   - Any other dotted code ("A.3.1") counts all of its segments.
//   - Anything else, including a blank code, is level 1.
func SectionLevel(code string, chapter ChapterNumber) int {
	code = strings.TrimSpace(code)
	if code == "" {
		return 1
	}
	if strings.HasPrefix(code, "Division") {
		return 1
	}
	if !strings.Contains(code, ".") {
		return 1
	}

	parts := strings.Split(code, ".")
	if parts[0] == string(chapter) {
		return max(len(parts)-1, 1)
	}
	return len(parts)
}

// BuildTree converts the chapter's flat entry list into a forest of nodes.
//
// Entries are taken strictly in order; a stack holds the open ancestors. Out of
// order or inconsistent codes produce a best-effort tree rather than an error.
func BuildTree(ch Chapter) []*Node {
	var roots []*Node
	var stack []*Node

	for i, entry := range ch.Entries {
		node := &Node{
			Key:   NodeKey(ch.Number, i),
			Code:  strings.TrimSpace(entry.Code),
			Title: strings.TrimSpace(entry.Title),
			Level: SectionLevel(entry.Code, ch.Number),
		}

		for len(stack) > 0 && stack[len(stack)-1].Level >= node.Level {
			stack = stack[:len(stack)-1]
		}

		if len(stack) == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[len(stack)-1]
			node.ParentKey = parent.Key
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, node)
	}

	return roots
}

// ChapterTree is a built chapter.
type ChapterTree struct {
	Number ChapterNumber `json:"number"`
	Title  string        `json:"title"`
	Roots  []*Node       `json:"sections"`
}

// BuildOutline builds every chapter of a document in order.
func BuildOutline(chapters []Chapter) []ChapterTree {
	out := make([]ChapterTree, 0, len(chapters))
	for _, ch := range chapters {
		out = append(out, ChapterTree{
			Number: ch.Number,
			Title:  ch.Title,
			Roots:  BuildTree(ch),
		})
	}
	return out
}

// Walk visits nodes depth-first in document order. Returning false from fn
// stops the walk.
func Walk(roots []*Node, fn func(*Node) bool) bool {
	for _, n := range roots {
		if !fn(n) {
			return false
		}
		if !Walk(n.Children, fn) {
			return false
		}
	}
	return true
}

// Find returns the node with the given key.
func Find(roots []*Node, key string) *Node {
	var found *Node
	Walk(roots, func(n *Node) bool {
		if n.Key == key {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindByCode returns the first node, in document order, whose code matches
// case-insensitively.
func FindByCode(roots []*Node, code string) *Node {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	var found *Node
	Walk(roots, func(n *Node) bool {
		if strings.EqualFold(n.Code, code) {
			found = n
			return false
		}
		return true
	})
	return found
}

// Lookup searches every chapter for a node by key, falling back to code.
func Lookup(trees []ChapterTree, keyOrCode string) (*Node, *ChapterTree) {
	for i := range trees {
		if n := Find(trees[i].Roots, keyOrCode); n != nil {
			return n, &trees[i]
		}
	}
	for i := range trees {
		if n := FindByCode(trees[i].Roots, keyOrCode); n != nil {
			return n, &trees[i]
		}
	}
	return nil, nil
}
