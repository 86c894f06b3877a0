package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/c360studio/specgen/source"
)

// Parser defines the interface for document parsers.
type Parser interface {
	// Parse parses a document into a tree.
	Parse(filename string, content []byte) (*source.Tree, error)

	// Extensions returns the lower-case file extensions this parser handles.
	Extensions() []string
}

// Registry maps file extensions to parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser // keyed by extension
}

// NewRegistry creates a registry with the markdown, HTML, AsciiDoc and
// reStructuredText parsers, all bounded by maxBytes (zero means
// DefaultMaxBytes).
func NewRegistry(maxBytes int) *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
	}

	r.Register(NewMarkdownParser(maxBytes))
	r.Register(NewHTMLParser(maxBytes))
	r.Register(NewASCIIDocParser(maxBytes))
	r.Register(NewRSTParser(maxBytes))

	return r
}

// Register adds a parser for each of its extensions, replacing earlier ones.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range p.Extensions() {
		r.parsers[strings.ToLower(ext)] = p
	}
}

// GetByExtension returns the parser for a file based on its extension.
// Files without an extension are treated as markdown.
func (r *Registry) GetByExtension(filename string) Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".md"
	}
	return r.parsers[ext]
}

// Parse parses a document using the parser registered for its extension.
func (r *Registry) Parse(filename string, content []byte) (*source.Tree, error) {
	parser := r.GetByExtension(filename)
	if parser == nil {
		return nil, &ParseError{
			Filename: filename,
			Message:  fmt.Sprintf("no parser for file type %q", filepath.Ext(filename)),
		}
	}
	return parser.Parse(filename, content)
}

// ListExtensions returns all registered extensions, sorted.
func (r *Registry) ListExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
