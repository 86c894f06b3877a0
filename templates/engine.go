// Package templates renders the generated documents from handlebars-style
// templates.
//
// Supported constructs:
//
//	{{#if key}}...{{else}}...{{/if}}
//	{{#each key}}...{{this}}...{{field}}...{{/each}}
//	{{identifier}}
//
// A template is parsed into a block tree before anything is rendered, so
// conditionals and loops are always resolved before the variables inside them
// are substituted. A block tag alone on its line consumes that whole line.
package templates

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type nodeKind int

const (
	textNode nodeKind = iota
	varNode
	ifNode
	eachNode
)

type node struct {
	kind nodeKind
	text string // textNode
	key  string // varNode, ifNode, eachNode
	line int
	body []node
	alt  []node // ifNode else branch
}

// token is a lexed piece of template source.
type token struct {
	text  string // raw text, or the trimmed tag contents
	isTag bool
	line  int
}

func (t token) isBlockTag() bool {
	if !t.isTag {
		return false
	}
	return t.text == "else" || strings.HasPrefix(t.text, "#") || strings.HasPrefix(t.text, "/")
}

func lex(src string) ([]token, error) {
	var tokens []token
	line := 1
	for len(src) > 0 {
		open := strings.Index(src, "{{")
		if open < 0 {
			tokens = append(tokens, token{text: src, line: line})
			break
		}
		if open > 0 {
			tokens = append(tokens, token{text: src[:open], line: line})
			line += strings.Count(src[:open], "\n")
		}
		closeIdx := strings.Index(src[open:], "}}")
		if closeIdx < 0 {
			return nil, &TemplateError{Line: line, Message: "unterminated tag"}
		}
		inner := src[open+2 : open+closeIdx]
		tokens = append(tokens, token{text: strings.TrimSpace(inner), isTag: true, line: line})
		line += strings.Count(inner, "\n")
		src = src[open+closeIdx+2:]
	}
	stripStandalone(tokens)
	return tokens, nil
}

// stripStandalone removes the indentation and line break around block tags
// that sit alone on a line. Standalone tags are found on the unmodified
// tokens first so that adjacent block lines are all recognised.
func stripStandalone(tokens []token) {
	starts := make([]int, len(tokens))
	ends := make([]int, len(tokens))
	for i, t := range tokens {
		ends[i] = len(t.text)
	}

	for i, t := range tokens {
		if !t.isBlockTag() {
			continue
		}

		// Text before the tag on the same line must be blank.
		prevOK := i == 0
		var prevCut int
		if i > 0 && !tokens[i-1].isTag {
			prev := tokens[i-1].text
			nl := strings.LastIndexByte(prev, '\n')
			lead := prev[nl+1:]
			if strings.TrimLeft(lead, " \t") == "" && (nl >= 0 || i == 1) {
				prevOK = true
				prevCut = nl + 1
			}
		}
		if !prevOK {
			continue
		}

		// Text after the tag on the same line must be blank, through the newline.
		nextOK := i == len(tokens)-1
		var nextCut int
		if i+1 < len(tokens) && !tokens[i+1].isTag {
			next := tokens[i+1].text
			trimmed := strings.TrimLeft(next, " \t")
			switch {
			case strings.HasPrefix(trimmed, "\r\n"):
				nextOK, nextCut = true, len(next)-len(trimmed)+2
			case strings.HasPrefix(trimmed, "\n"):
				nextOK, nextCut = true, len(next)-len(trimmed)+1
			case trimmed == "" && i+2 == len(tokens):
				nextOK, nextCut = true, len(next)
			}
		}
		if !nextOK {
			continue
		}

		if i > 0 && !tokens[i-1].isTag {
			ends[i-1] = prevCut
		}
		if i+1 < len(tokens) && !tokens[i+1].isTag {
			starts[i+1] = nextCut
		}
	}

	for i := range tokens {
		if tokens[i].isTag {
			continue
		}
		if starts[i] >= ends[i] {
			tokens[i].text = ""
			continue
		}
		tokens[i].text = tokens[i].text[starts[i]:ends[i]]
	}
}

// parse builds the block tree of a template.
func parse(src string) ([]node, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &treeParser{tokens: tokens}
	nodes, end, err := p.parseUntil("")
	if err != nil {
		return nil, err
	}
	if end != "" {
		return nil, &TemplateError{Line: p.lastLine, Message: fmt.Sprintf("unexpected {{%s}}", end)}
	}
	return nodes, nil
}

type treeParser struct {
	tokens   []token
	pos      int
	lastLine int
}

// parseUntil consumes nodes until a closing or else tag, which it returns.
// At the top level closing is "" and reaching the end of input is fine.
func (p *treeParser) parseUntil(closing string) ([]node, string, error) {
	var nodes []node
	for p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		p.pos++
		p.lastLine = t.line

		if !t.isTag {
			if t.text != "" {
				nodes = append(nodes, node{kind: textNode, text: t.text, line: t.line})
			}
			continue
		}

		switch {
		case t.text == "else" || strings.HasPrefix(t.text, "/"):
			return nodes, t.text, nil

		case strings.HasPrefix(t.text, "#if ") || strings.HasPrefix(t.text, "#each "):
			fields := strings.Fields(t.text)
			if len(fields) != 2 || !identifierRe.MatchString(fields[1]) {
				return nil, "", &TemplateError{Line: t.line, Message: fmt.Sprintf("malformed block tag {{%s}}", t.text)}
			}
			block, err := p.parseBlock(strings.TrimPrefix(fields[0], "#"), fields[1], t.line)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, block)

		case t.text == "this" || identifierRe.MatchString(t.text):
			nodes = append(nodes, node{kind: varNode, key: t.text, line: t.line})

		default:
			return nil, "", &TemplateError{Line: t.line, Message: fmt.Sprintf("unsupported tag {{%s}}", t.text)}
		}
	}

	if closing != "" {
		return nil, "", &TemplateError{Line: p.lastLine, Message: fmt.Sprintf("missing {{/%s}}", closing)}
	}
	return nodes, "", nil
}

func (p *treeParser) parseBlock(kind, key string, line int) (node, error) {
	n := node{key: key, line: line}
	if kind == "if" {
		n.kind = ifNode
	} else {
		n.kind = eachNode
	}

	body, end, err := p.parseUntil(kind)
	if err != nil {
		return node{}, err
	}
	n.body = body

	if end == "else" {
		if kind != "if" {
			return node{}, &TemplateError{Line: p.lastLine, Message: "{{else}} is only valid inside {{#if}}"}
		}
		n.alt, end, err = p.parseUntil(kind)
		if err != nil {
			return node{}, err
		}
		if end == "else" {
			return node{}, &TemplateError{Line: p.lastLine, Message: "duplicate {{else}}"}
		}
	}

	if end != "/"+kind {
		return node{}, &TemplateError{Line: p.lastLine, Message: fmt.Sprintf("{{#%s %s}} closed by {{%s}}", kind, key, end)}
	}
	return n, nil
}

// scope is a stack of lookup contexts, innermost last.
type scope []any

func (s scope) lookup(key string) (any, bool) {
	if key == "this" {
		return s[len(s)-1], true
	}
	for i := len(s) - 1; i >= 0; i-- {
		if m, ok := s[i].(map[string]any); ok {
			if v, ok := m[key]; ok {
				return v, true
			}
		}
	}
	return nil, false
}

func (s scope) push(v any) scope {
	next := make(scope, len(s), len(s)+1)
	copy(next, s)
	return append(next, v)
}

// Render renders tpl against data. Absent variables render as the empty
// string; use MissingVariables to detect them first.
func Render(tpl string, data map[string]any) (string, error) {
	nodes, err := parse(tpl)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := renderNodes(&b, nodes, scope{data}); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderNodes(b *strings.Builder, nodes []node, s scope) error {
	for _, n := range nodes {
		switch n.kind {
		case textNode:
			b.WriteString(n.text)
		case varNode:
			v, _ := s.lookup(n.key)
			b.WriteString(stringify(v))
		case ifNode:
			v, _ := s.lookup(n.key)
			branch := n.alt
			if truthy(v) {
				branch = n.body
			}
			if err := renderNodes(b, branch, s); err != nil {
				return err
			}
		case eachNode:
			v, _ := s.lookup(n.key)
			items, err := listItems(v, n)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := renderNodes(b, n.body, s.push(item)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// MissingVariables returns the sorted names of plain variables that tpl
// references but data does not provide. Inside a loop, a variable must be
// provided by every element or by an enclosing scope; loops over absent or
// empty lists are not checked.
func MissingVariables(tpl string, data map[string]any) ([]string, error) {
	nodes, err := parse(tpl)
	if err != nil {
		return nil, err
	}
	missing := map[string]bool{}
	if err := collectMissing(nodes, scope{data}, missing); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func collectMissing(nodes []node, s scope, missing map[string]bool) error {
	for _, n := range nodes {
		switch n.kind {
		case varNode:
			if _, ok := s.lookup(n.key); !ok {
				missing[n.key] = true
			}
		case ifNode:
			if err := collectMissing(n.body, s, missing); err != nil {
				return err
			}
			if err := collectMissing(n.alt, s, missing); err != nil {
				return err
			}
		case eachNode:
			v, _ := s.lookup(n.key)
			items, err := listItems(v, n)
			if err != nil {
				return err
			}
			for _, item := range items {
				if err := collectMissing(n.body, s.push(item), missing); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// listItems converts the value of an each block to a slice.
func listItems(v any, n node) ([]any, error) {
	if v == nil {
		return nil, nil
	}
	if items, ok := v.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, &TemplateError{Line: n.line, Message: fmt.Sprintf("{{#each %s}} needs a list, got %T", n.key, v)}
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}

// truthy reports whether v counts as true: nil, false, "", zero numbers and
// empty collections are false.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// stringify renders a value for substitution. Lists join with ", ".
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = stringify(rv.Index(i).Interface())
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
