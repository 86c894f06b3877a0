// Package source provides the document tree produced by the parsers and the
// traversal helpers the extractor uses to walk it.
package source

import (
	"regexp"
	"strings"
)

// NodeKind discriminates the variants of Node.
type NodeKind string

// Node kinds produced by the parser.
const (
	KindHeading        NodeKind = "heading"
	KindParagraph      NodeKind = "paragraph"
	KindListItem       NodeKind = "list_item"
	KindCodeBlock      NodeKind = "code_block"
	KindHorizontalRule NodeKind = "horizontal_rule"
)

// Node is one block-level element of a document.
type Node struct {
	// Kind selects which of the remaining fields are meaningful.
	Kind NodeKind `json:"kind"`

	// Line is the 1-based line the node starts on in the original input.
	Line int `json:"line"`

	// EndLine is the last input line of a node spanning several lines:
	// merged paragraphs, wrapped list items and code blocks. Zero when the
	// node covers Line only.
	EndLine int `json:"end_line,omitempty"`

	// Level is the heading level (1-6). Headings only.
	Level int `json:"level,omitempty"`

	// Text is the heading text, paragraph text, list item text (marker
	// removed) or code block body.
	Text string `json:"text,omitempty"`

	// Indent is the list nesting depth; two spaces make one level.
	Indent int `json:"indent,omitempty"`

	// Ordered is true for numbered list items.
	Ordered bool `json:"ordered,omitempty"`

	// Language is the info string of a fenced code block.
	Language string `json:"language,omitempty"`
}

// IsHeading returns true if the node is a heading.
func (n Node) IsHeading() bool {
	return n.Kind == KindHeading
}

// Tree is one parsed document. Nodes keep source order. A Tree is not
// modified after the parser returns it.
type Tree struct {
	// Filename is the base name of the parsed file, if known.
	Filename string `json:"filename,omitempty"`

	// Title is an explicit title, e.g. from HTML <title> or frontmatter.
	DeclaredTitle string `json:"title,omitempty"`

	// Frontmatter holds decoded YAML frontmatter, if present.
	Frontmatter map[string]any `json:"frontmatter,omitempty"`

	// Nodes is the flat, ordered node sequence.
	Nodes []Node `json:"nodes"`

	// Source is the document body the nodes were parsed from.
	Source string `json:"-"`
}

// HasFrontmatter returns true if the document has parsed frontmatter.
func (t *Tree) HasFrontmatter() bool {
	return len(t.Frontmatter) > 0
}

// Text returns the document body, used for free-text searches.
func (t *Tree) Text() string {
	if t == nil {
		return ""
	}
	return t.Source
}

// Title returns the declared title, the frontmatter title, or the first
// level-1 heading, in that order.
func (t *Tree) Title() string {
	if t == nil {
		return ""
	}
	if t.DeclaredTitle != "" {
		return t.DeclaredTitle
	}
	if s, ok := t.Frontmatter["title"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	for _, n := range t.Nodes {
		if n.IsHeading() && n.Level == 1 {
			return n.Text
		}
	}
	return ""
}

// Section is a heading together with the nodes it governs.
type Section struct {
	Heading Node
	Body    []Node
}

// FindSection returns the first heading whose text matches pattern, followed
// by every node up to (not including) the next heading at the same or a
// shallower level. The heading is the first element of the result.
func FindSection(nodes []Node, pattern *regexp.Regexp) ([]Node, bool) {
	for i, n := range nodes {
		if !n.IsHeading() || !pattern.MatchString(n.Text) {
			continue
		}
		end := sectionEnd(nodes, i)
		return nodes[i:end], true
	}
	return nil, false
}

// FindSections returns every section whose heading matches pattern.
func FindSections(nodes []Node, pattern *regexp.Regexp) []Section {
	var out []Section
	for i, n := range nodes {
		if !n.IsHeading() || !pattern.MatchString(n.Text) {
			continue
		}
		end := sectionEnd(nodes, i)
		out = append(out, Section{Heading: n, Body: nodes[i+1 : end]})
	}
	return out
}

// HeadingsAtLevel filters nodes to headings of exactly the given level.
func HeadingsAtLevel(nodes []Node, level int) []Node {
	var out []Node
	for _, n := range nodes {
		if n.IsHeading() && n.Level == level {
			out = append(out, n)
		}
	}
	return out
}

// Sections splits nodes into the sections headed by headings of the given
// level. Nodes before the first such heading are not part of any section.
func Sections(nodes []Node, level int) []Section {
	var out []Section
	for i, n := range nodes {
		if !n.IsHeading() || n.Level != level {
			continue
		}
		end := sectionEnd(nodes, i)
		out = append(out, Section{Heading: n, Body: nodes[i+1 : end]})
	}
	return out
}

// Preamble returns the nodes that precede the first heading.
func Preamble(nodes []Node) []Node {
	for i, n := range nodes {
		if n.IsHeading() {
			return nodes[:i]
		}
	}
	return nodes
}

// ListItems returns the list items among nodes.
func ListItems(nodes []Node) []Node {
	var out []Node
	for _, n := range nodes {
		if n.Kind == KindListItem {
			out = append(out, n)
		}
	}
	return out
}

// FirstParagraph returns the first paragraph among nodes.
func FirstParagraph(nodes []Node) (Node, bool) {
	for _, n := range nodes {
		if n.Kind == KindParagraph {
			return n, true
		}
	}
	return Node{}, false
}

// sectionEnd returns the index of the first node after the heading at start
// that is a heading of the same or shallower level, or len(nodes).
func sectionEnd(nodes []Node, start int) int {
	level := nodes[start].Level
	for j := start + 1; j < len(nodes); j++ {
		if nodes[j].IsHeading() && nodes[j].Level <= level {
			return j
		}
	}
	return len(nodes)
}
