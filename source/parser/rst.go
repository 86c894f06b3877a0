package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// rstAdornments are the characters allowed in section title adornments.
const rstAdornments = "=-~^+#*_:'\"`."

var (
	rstFieldRe     = regexp.MustCompile(`^:([^:]+):[ \t]*(.*)$`)
	rstDirectiveRe = regexp.MustCompile(`^\.\.[ \t]+([A-Za-z0-9_-]+)::[ \t]*(.*)$`)
	rstEnumRe      = regexp.MustCompile(`^([ \t]*)(?:#|\d+)\.[ \t]+(.*)$`)
)

var rstAdmonitions = map[string]string{
	"note":      "Note",
	"tip":       "Tip",
	"hint":      "Hint",
	"important": "Important",
	"warning":   "Warning",
	"caution":   "Caution",
	"attention": "Attention",
	"danger":    "Danger",
	"error":     "Error",
}

// rstToMarkdown converts reStructuredText to markdown. Section levels are
// assigned in the order adornment styles first appear. A field list at the
// top of the document is returned as metadata.
func rstToMarkdown(text string) (string, map[string]any) {
	lines := strings.Split(text, "\n")
	meta := map[string]any{}

	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	for ; i < len(lines); i++ {
		m := rstFieldRe.FindStringSubmatch(lines[i])
		if m == nil {
			break
		}
		meta[strings.ToLower(strings.TrimSpace(m[1]))] = strings.TrimSpace(m[2])
	}

	c := &rstConverter{levels: map[string]int{}}
	for ; i < len(lines); i++ {
		i += c.consume(lines, i)
	}
	c.endLiteral()
	return strings.Join(c.out, "\n"), meta
}

type rstConverter struct {
	out []string

	// levels maps an adornment style to its heading level.
	levels map[string]int

	// Literal block state. indent is 0 until the first content line.
	literal bool
	started bool
	lang    string
	indent  int
}

// consume converts lines[i] and returns how many following lines it also
// consumed.
func (c *rstConverter) consume(lines []string, i int) int {
	line := lines[i]
	trimmed := strings.TrimSpace(line)

	if c.literal {
		if trimmed == "" {
			if c.started {
				c.out = append(c.out, "")
			}
			return 0
		}
		width := indentWidth(line)
		if !c.started && width > 0 {
			c.out = append(c.out, "```"+c.lang)
			c.started = true
			c.indent = width
		}
		if c.started && width >= c.indent {
			c.out = append(c.out, dedent(line, c.indent))
			return 0
		}
		c.endLiteral()
	}

	// Title between an overline and an underline.
	if _, ok := repeatedRune(trimmed, 3, rstAdornments); ok && i+2 < len(lines) {
		title := strings.TrimSpace(lines[i+1])
		if title != "" && strings.TrimSpace(lines[i+2]) == trimmed {
			c.heading("over"+trimmed[:1], title)
			return 2
		}
	}

	// Title followed by an underline at least as long.
	if trimmed != "" && indentWidth(line) == 0 && i+1 < len(lines) {
		under := strings.TrimSpace(lines[i+1])
		if _, ok := repeatedRune(under, 3, rstAdornments); ok && utf8.RuneCountInString(under) >= utf8.RuneCountInString(trimmed) {
			if _, isRule := repeatedRune(trimmed, 3, rstAdornments); !isRule {
				c.heading(under[:1], trimmed)
				return 1
			}
		}
	}

	if m := rstDirectiveRe.FindStringSubmatch(trimmed); m != nil {
		name := strings.ToLower(m[1])
		switch {
		case name == "code" || name == "code-block" || name == "sourcecode":
			c.startLiteral(strings.TrimSpace(m[2]))
		case rstAdmonitions[name] != "":
			c.out = append(c.out, strings.TrimSpace("**"+rstAdmonitions[name]+":** "+m[2]))
		}
		return 0
	}
	if trimmed == ".." || strings.HasPrefix(trimmed, ".. ") {
		// Comments, link targets and substitution definitions.
		return 0
	}

	if strings.HasSuffix(trimmed, "::") {
		lead := strings.TrimSuffix(strings.TrimRight(line, " \t"), ":")
		if strings.HasSuffix(lead, " :") {
			lead = strings.TrimRight(strings.TrimSuffix(lead, ":"), " \t")
		}
		if strings.TrimSpace(lead) != ":" && strings.TrimSpace(lead) != "" {
			c.out = append(c.out, lead)
		}
		c.startLiteral("")
		return 0
	}

	if m := rstEnumRe.FindStringSubmatch(line); m != nil {
		c.out = append(c.out, m[1]+"1. "+m[2])
		return 0
	}
	if m := rstFieldRe.FindStringSubmatch(trimmed); m != nil && indentWidth(line) == 0 {
		c.out = append(c.out, "**"+strings.TrimSpace(m[1])+":** "+strings.TrimSpace(m[2]))
		return 0
	}

	c.out = append(c.out, line)
	return 0
}

func (c *rstConverter) heading(style, title string) {
	level, ok := c.levels[style]
	if !ok {
		level = len(c.levels) + 1
		if level > 6 {
			level = 6
		}
		c.levels[style] = level
	}
	c.out = append(c.out, strings.Repeat("#", level)+" "+title)
}

func (c *rstConverter) startLiteral(lang string) {
	c.literal = true
	c.started = false
	c.lang = lang
	c.indent = 0
}

// endLiteral closes an open literal block, moving trailing blank lines
// outside the fence.
func (c *rstConverter) endLiteral() {
	if !c.literal {
		return
	}
	c.literal = false
	if !c.started {
		return
	}
	blanks := 0
	for len(c.out) > 0 && c.out[len(c.out)-1] == "" {
		c.out = c.out[:len(c.out)-1]
		blanks++
	}
	c.out = append(c.out, "```")
	for ; blanks > 0; blanks-- {
		c.out = append(c.out, "")
	}
}

// dedent removes width columns of leading whitespace.
func dedent(line string, width int) string {
	removed := 0
	for i, r := range line {
		if removed >= width || (r != ' ' && r != '\t') {
			return line[i:]
		}
		if r == '\t' {
			removed += 4
		} else {
			removed++
		}
	}
	return ""
}
