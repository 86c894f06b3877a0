package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/c360studio/specgen/source"
)

var (
	emphasisRe   = regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`)
	leadNumberRe = regexp.MustCompile(`^\d+[.)]\s+`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// cleanInline strips bold markers, a leading enumeration and redundant
// whitespace from heading or list text.
func cleanInline(s string) string {
	s = emphasisRe.ReplaceAllString(s, "$2")
	s = leadNumberRe.ReplaceAllString(strings.TrimSpace(s), "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// truncateWords shortens s to at most limit bytes, cutting at a word boundary.
func truncateWords(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := strings.LastIndexByte(s[:limit+1], ' ')
	if cut <= 0 {
		cut = limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
	}
	return strings.TrimRight(s[:cut], " ,;:")
}

// isWordRune reports whether r is a word character for regexp's ASCII \b.
func isWordRune(r rune) bool {
	return r < unicode.MaxASCII && (r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r))
}

// mentionPattern builds a regex matching name as a whole phrase.
func mentionPattern(name string, caseInsensitive bool) *regexp.Regexp {
	first, _ := utf8.DecodeRuneInString(name)
	last, _ := utf8.DecodeLastRuneInString(name)

	var b strings.Builder
	if caseInsensitive {
		b.WriteString("(?i)")
	}
	if isWordRune(first) {
		b.WriteString(`\b`)
	}
	b.WriteString(regexp.QuoteMeta(name))
	if isWordRune(last) {
		b.WriteString(`\b`)
	}
	return regexp.MustCompile(b.String())
}

// mentions finds feature names in text. When a shorter name lies inside a
// mention of a longer one ("Search" in "Advanced Search"), only the longer
// name counts.
type mentions struct {
	patterns map[string]*regexp.Regexp
	// longer lists, per name, the other names that contain it.
	longer map[string][]string
}

func newMentions(names []string) *mentions {
	m := &mentions{
		patterns: make(map[string]*regexp.Regexp, len(names)),
		longer:   make(map[string][]string),
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		m.patterns[name] = mentionPattern(name, true)
	}
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, other := range names {
			if len(other) > len(name) && strings.Contains(strings.ToLower(other), lower) {
				m.longer[name] = append(m.longer[name], other)
			}
		}
	}
	return m
}

// find returns the byte ranges of text that mention name and are not part
// of a mention of a longer name.
func (m *mentions) find(text, name string) [][]int {
	re, ok := m.patterns[name]
	if !ok {
		re = mentionPattern(name, true)
	}
	found := re.FindAllStringIndex(text, -1)
	if len(found) == 0 {
		return nil
	}

	var masked [][]int
	for _, other := range m.longer[name] {
		if re := m.patterns[other]; re != nil {
			masked = append(masked, re.FindAllStringIndex(text, -1)...)
		}
	}
	out := found[:0]
	for _, loc := range found {
		covered := false
		for _, span := range masked {
			if span[0] <= loc[0] && loc[1] <= span[1] {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, loc)
		}
	}
	return out
}

// passage is a piece of debt-analysis text that mentions a feature.
type passage struct {
	Text string
	Line int
	// Scope is the part of Text that talks about the feature: the whole
	// section for a heading mention, the mentioning clauses otherwise.
	Scope string
}

// clauseBreakRe matches sentence ends and contrasting conjunctions.
var clauseBreakRe = regexp.MustCompile(`(?i)[.;!?](?:\s+|$)|,?\s+\b(?:but|while|whereas|although|though|however)\b`)

// clauseAround returns the clause of text containing the byte range loc.
func clauseAround(text string, loc []int) string {
	start, end := 0, len(text)
	for _, br := range clauseBreakRe.FindAllStringIndex(text, -1) {
		if br[1] <= loc[0] {
			start = br[1]
			continue
		}
		if br[0] >= loc[1] {
			end = br[0]
			break
		}
	}
	return strings.TrimSpace(text[start:end])
}

// passagesMentioning returns the debt passages that mention name. A heading
// mention yields its whole section as one passage; any other mention yields
// the mentioning node. Nodes already covered by a section are not repeated.
func passagesMentioning(tree *source.Tree, name string, m *mentions) []passage {
	if tree == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	if m == nil {
		m = newMentions([]string{name})
	}

	var out []passage
	nodes := tree.Nodes
	for i := 0; i < len(nodes); i++ {
		n := nodes[i]
		locs := m.find(n.Text, name)
		if len(locs) == 0 {
			continue
		}
		if n.IsHeading() {
			end := sectionEnd(nodes, i)
			body := joinText(nodes[i+1 : end])
			out = append(out, passage{Text: body, Line: n.Line, Scope: body})
			i = end - 1
			continue
		}
		if n.Kind == source.KindParagraph || n.Kind == source.KindListItem {
			clauses := make([]string, 0, len(locs))
			for _, loc := range locs {
				clauses = append(clauses, clauseAround(n.Text, loc))
			}
			out = append(out, passage{Text: n.Text, Line: n.Line, Scope: strings.Join(clauses, " ")})
		}
	}

	// Sections with an empty body contribute nothing.
	filtered := out[:0]
	for _, p := range out {
		if strings.TrimSpace(p.Text) != "" {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// sectionEnd returns the index of the first heading after start at the same
// or a shallower level than the heading at start, or len(nodes).
func sectionEnd(nodes []source.Node, start int) int {
	for j := start + 1; j < len(nodes); j++ {
		if nodes[j].IsHeading() && nodes[j].Level <= nodes[start].Level {
			return j
		}
	}
	return len(nodes)
}

// joinText concatenates the prose of paragraph and list nodes.
func joinText(nodes []source.Node) string {
	var parts []string
	for _, n := range nodes {
		if n.Kind == source.KindParagraph || n.Kind == source.KindListItem {
			parts = append(parts, strings.TrimSpace(n.Text))
		}
	}
	return strings.Join(parts, " ")
}

// topLevelItems returns list items at indent zero, cleaned.
func topLevelItems(nodes []source.Node) []string {
	var out []string
	for _, n := range source.ListItems(nodes) {
		if n.Indent != 0 {
			continue
		}
		if text := cleanInline(n.Text); text != "" {
			out = append(out, text)
		}
	}
	return out
}
