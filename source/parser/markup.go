package parser

import (
	"path/filepath"
	"strings"

	"github.com/c360studio/specgen/source"
)

// MarkupParser parses a lightweight markup language by converting it to
// markdown and running the markdown block parser over the result. Node line
// numbers therefore refer to the converted text.
type MarkupParser struct {
	exts     []string
	convert  func(text string) (markdown string, meta map[string]any)
	markdown *MarkdownParser
}

// NewASCIIDocParser creates a parser for AsciiDoc documents.
func NewASCIIDocParser(maxBytes int) *MarkupParser {
	return &MarkupParser{
		exts:     []string{".adoc", ".asciidoc", ".asc"},
		convert:  asciiDocToMarkdown,
		markdown: NewMarkdownParser(maxBytes),
	}
}

// NewRSTParser creates a parser for reStructuredText documents.
func NewRSTParser(maxBytes int) *MarkupParser {
	return &MarkupParser{
		exts:     []string{".rst", ".rest"},
		convert:  rstToMarkdown,
		markdown: NewMarkdownParser(maxBytes),
	}
}

// Extensions returns the file extensions this parser handles.
func (p *MarkupParser) Extensions() []string {
	return p.exts
}

// Parse converts the document to markdown and parses it. Header attributes
// (AsciiDoc) or the leading field list (reStructuredText) become the tree's
// frontmatter.
func (p *MarkupParser) Parse(filename string, content []byte) (*source.Tree, error) {
	if err := p.markdown.checkInput(filename, content); err != nil {
		return nil, err
	}

	markdown, meta := p.convert(normalizeNewlines(string(content)))
	tree := parseLines(markdown)
	tree.Filename = filepath.Base(filename)
	if len(meta) > 0 {
		tree.Frontmatter = meta
	}
	return tree, nil
}

// indentWidth counts leading spaces, with tabs as four.
func indentWidth(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// repeatedRune reports whether s is at least n copies of a single rune
// from set, returning that rune.
func repeatedRune(s string, n int, set string) (rune, bool) {
	if len(s) < n {
		return 0, false
	}
	first := rune(s[0])
	if !strings.ContainsRune(set, first) {
		return 0, false
	}
	for _, r := range s {
		if r != first {
			return 0, false
		}
	}
	return first, true
}
