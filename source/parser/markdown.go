// Package parser converts raw documents into source.Tree values.
package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/c360studio/specgen/source"
	"gopkg.in/yaml.v3"
)

// DefaultMaxBytes is the largest input accepted by default (10 MiB).
const DefaultMaxBytes = 10 << 20

var (
	headingRe = regexp.MustCompile(`^ {0,3}(#{1,6})(?:[ \t]+(.*?))?[ \t]*$`)
	closingRe = regexp.MustCompile(`[ \t]+#+$`)
	listRe    = regexp.MustCompile(`^([ \t]*)([-*+]|\d{1,9}[.)])[ \t]+(.*)$`)
	ruleRe    = regexp.MustCompile(`^ {0,3}(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	fenceRe   = regexp.MustCompile("^[ \t]*(`{3,}|~{3,})[ \t]*([^`\\s]*)")
)

// MarkdownParser parses markdown documents with optional YAML frontmatter.
type MarkdownParser struct {
	// MaxBytes bounds the accepted input size. Zero means DefaultMaxBytes.
	MaxBytes int
}

// NewMarkdownParser creates a new markdown parser with the given size limit.
func NewMarkdownParser(maxBytes int) *MarkdownParser {
	return &MarkdownParser{MaxBytes: maxBytes}
}

// Extensions returns the file extensions this parser handles.
func (p *MarkdownParser) Extensions() []string {
	return []string{".md", ".markdown", ".txt"}
}

// Parse parses a markdown document into a tree.
func (p *MarkdownParser) Parse(filename string, content []byte) (*source.Tree, error) {
	if err := p.checkInput(filename, content); err != nil {
		return nil, err
	}
	tree := parseLines(normalizeNewlines(string(content)))
	tree.Filename = filepath.Base(filename)
	return tree, nil
}

// ParseText parses markdown text that has no associated file.
func (p *MarkdownParser) ParseText(text string) (*source.Tree, error) {
	return p.Parse("", []byte(text))
}

func (p *MarkdownParser) maxBytes() int {
	if p.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return p.MaxBytes
}

// checkInput enforces the size limit and UTF-8 validity.
func (p *MarkdownParser) checkInput(filename string, content []byte) error {
	if len(content) > p.maxBytes() {
		return &ParseError{
			Filename: filename,
			Message:  fmt.Sprintf("input is %d bytes, limit is %d", len(content), p.maxBytes()),
		}
	}
	if !utf8.Valid(content) {
		return &ParseError{
			Filename: filename,
			Line:     firstInvalidLine(content),
			Message:  "input is not valid UTF-8",
		}
	}
	return nil
}

// firstInvalidLine returns the 1-based line holding the first invalid UTF-8 sequence.
func firstInvalidLine(content []byte) int {
	line := 1
	for len(content) > 0 {
		r, size := utf8.DecodeRune(content)
		if r == utf8.RuneError && size <= 1 {
			return line
		}
		if r == '\n' {
			line++
		}
		content = content[size:]
	}
	return line
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// lineParser holds the state of the single forward pass.
type lineParser struct {
	nodes []source.Node

	// paragraph accumulation
	paraLines []string
	paraStart int
	paraEnd   int

	// inItem is set while the last line was a list item or its
	// continuation, so an indented line that follows extends the item.
	inItem bool

	// fenced code accumulation
	inFence   bool
	fence     string
	fenceLang string
	fenceLine int
	fenceBuf  []string
	fenceRaw  string
}

// parseLines runs the block parser over the document text.
func parseLines(text string) *source.Tree {
	tree := &source.Tree{}

	lines := strings.Split(text, "\n")
	offset := 0
	if fm, consumed, ok := extractFrontmatter(lines); ok {
		tree.Frontmatter = fm
		offset = consumed
	}
	body := lines[offset:]
	tree.Source = strings.Join(body, "\n")

	p := &lineParser{}
	for i, line := range body {
		p.consume(line, offset+i+1)
	}
	p.finish()

	tree.Nodes = p.nodes
	return tree
}

func (p *lineParser) consume(line string, lineNo int) {
	if p.inFence {
		if isClosingFence(line, p.fence) {
			p.emit(source.Node{
				Kind:     source.KindCodeBlock,
				Line:     p.fenceLine,
				EndLine:  lineNo,
				Language: p.fenceLang,
				Text:     strings.Join(p.fenceBuf, "\n"),
			})
			p.inFence = false
			p.fenceBuf = nil
			return
		}
		p.fenceBuf = append(p.fenceBuf, line)
		return
	}

	if strings.TrimSpace(line) == "" {
		p.flushParagraph()
		p.inItem = false
		return
	}

	wasItem := p.inItem
	p.inItem = false

	if m := fenceRe.FindStringSubmatch(line); m != nil {
		p.flushParagraph()
		p.inFence = true
		p.fence = m[1]
		p.fenceLang = m[2]
		p.fenceLine = lineNo
		p.fenceRaw = strings.TrimSpace(line)
		return
	}

	if m := headingRe.FindStringSubmatch(line); m != nil {
		p.flushParagraph()
		text := closingRe.ReplaceAllString(m[2], "")
		if strings.Trim(text, "#") == "" {
			text = ""
		}
		p.emit(source.Node{
			Kind:  source.KindHeading,
			Line:  lineNo,
			Level: len(m[1]),
			Text:  strings.TrimSpace(text),
		})
		return
	}

	if ruleRe.MatchString(line) {
		p.flushParagraph()
		p.emit(source.Node{Kind: source.KindHorizontalRule, Line: lineNo})
		return
	}

	if m := listRe.FindStringSubmatch(line); m != nil {
		p.flushParagraph()
		marker := m[2]
		p.emit(source.Node{
			Kind:    source.KindListItem,
			Line:    lineNo,
			Text:    strings.TrimSpace(m[3]),
			Indent:  indentDepth(m[1]),
			Ordered: marker[0] >= '0' && marker[0] <= '9',
		})
		p.inItem = true
		return
	}

	if wasItem && (line[0] == ' ' || line[0] == '\t') {
		item := &p.nodes[len(p.nodes)-1]
		item.Text += " " + strings.TrimSpace(line)
		item.EndLine = lineNo
		p.inItem = true
		return
	}

	if len(p.paraLines) == 0 {
		p.paraStart = lineNo
	}
	p.paraLines = append(p.paraLines, strings.TrimSpace(line))
	p.paraEnd = lineNo
}

// finish flushes pending state at end of input. An unclosed fence becomes a
// paragraph holding everything that was buffered.
func (p *lineParser) finish() {
	if p.inFence {
		text := p.fenceRaw
		if len(p.fenceBuf) > 0 {
			text += "\n" + strings.Join(p.fenceBuf, "\n")
		}
		p.emit(source.Node{
			Kind: source.KindParagraph,
			Line: p.fenceLine,
			Text: strings.TrimRight(text, "\n "),
		})
		p.inFence = false
		p.fenceBuf = nil
		return
	}
	p.flushParagraph()
}

func (p *lineParser) flushParagraph() {
	if len(p.paraLines) == 0 {
		return
	}
	n := source.Node{
		Kind: source.KindParagraph,
		Line: p.paraStart,
		Text: strings.Join(p.paraLines, " "),
	}
	if p.paraEnd > p.paraStart {
		n.EndLine = p.paraEnd
	}
	p.nodes = append(p.nodes, n)
	p.paraLines = nil
}

func (p *lineParser) emit(n source.Node) {
	p.nodes = append(p.nodes, n)
}

// isClosingFence reports whether line closes a fence opened with open.
func isClosingFence(line, open string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < len(open) || trimmed[0] != open[0] {
		return false
	}
	return strings.Trim(trimmed, string(open[0])) == ""
}

// indentDepth converts a leading whitespace run to a nesting depth.
// Two spaces make one level; a tab counts as four spaces.
func indentDepth(ws string) int {
	width := 0
	for _, r := range ws {
		if r == '\t' {
			width += 4
		} else {
			width++
		}
	}
	return width / 2
}

// extractFrontmatter decodes a leading YAML frontmatter block. It returns the
// decoded map and the number of lines consumed, including both delimiters.
// Malformed frontmatter is left in the body.
func extractFrontmatter(lines []string) (map[string]any, int, bool) {
	const delimiter = "---"
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return nil, 0, false
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			closeIdx = i
			break
		}
	}
	if closeIdx == -1 {
		return nil, 0, false
	}

	var frontmatter map[string]any
	yamlContent := strings.Join(lines[1:closeIdx], "\n")
	if err := yaml.Unmarshal([]byte(yamlContent), &frontmatter); err != nil || len(frontmatter) == 0 {
		return nil, 0, false
	}

	return frontmatter, closeIdx + 1, true
}

// ContentHash computes a SHA256 hash of the content.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// NonBlankLines counts the lines that contain something other than whitespace.
func NonBlankLines(content []byte) int {
	n := 0
	for _, line := range bytes.Split(content, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}
