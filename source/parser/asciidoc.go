package parser

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	adocTitleRe     = regexp.MustCompile(`^(={1,6})[ \t]+(.+?)(?:[ \t]+=+)?[ \t]*$`)
	adocAttributeRe = regexp.MustCompile(`^:(!?[A-Za-z0-9_][A-Za-z0-9_-]*!?):[ \t]*(.*)$`)
	adocSourceRe    = regexp.MustCompile(`^\[source(?:,[ \t]*([^,\]]+))?[^\]]*\]$`)
	adocBlockAttrRe = regexp.MustCompile(`^\[[^\]]*\]$`)
	adocAdmonRe     = regexp.MustCompile(`^(NOTE|TIP|IMPORTANT|WARNING|CAUTION):[ \t]*(.*)$`)
	adocMacroRe     = regexp.MustCompile(`^([a-z]+)::([^\[]*)\[([^\]]*)\]$`)
	adocListRe      = regexp.MustCompile(`^(\*{1,5}|\.{1,5}|-)[ \t]+(.*)$`)
	adocBlockTitle  = regexp.MustCompile(`^\.([^.\s].*)$`)
)

// asciiDocToMarkdown converts AsciiDoc to markdown. Section levels keep their
// depth: "= Title" becomes "# Title", "== Section" becomes "## Section".
// Attribute entries in the document header are returned as metadata.
func asciiDocToMarkdown(text string) (string, map[string]any) {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	meta := map[string]any{}

	i := 0
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i < len(lines) {
		if m := adocTitleRe.FindStringSubmatch(lines[i]); m != nil && len(m[1]) == 1 {
			out = append(out, "# "+m[2])
			i++
		}
	}
	for ; i < len(lines); i++ {
		m := adocAttributeRe.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			break
		}
		name := strings.ToLower(m[1])
		if strings.HasPrefix(name, "!") || strings.HasSuffix(name, "!") {
			delete(meta, strings.Trim(name, "!"))
			continue
		}
		if m[2] == "" {
			meta[name] = true
		} else {
			meta[name] = m[2]
		}
	}

	// open is the delimiter of the verbatim block being copied, if any.
	var open, lang string
	for ; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if open != "" {
			if trimmed != open {
				if open != "////" {
					out = append(out, line)
				}
				continue
			}
			if open == "----" || open == "...." {
				out = append(out, "```")
			}
			open = ""
			continue
		}

		if c, ok := repeatedRune(trimmed, 4, "-.+/=*_"); ok {
			switch c {
			case '-', '.':
				out = append(out, "```"+lang)
				open = trimmed
			case '+', '/':
				open = trimmed
			}
			// Example, sidebar and quote delimiters only group content.
			lang = ""
			continue
		}
		if trimmed == "--" {
			continue
		}

		if m := adocSourceRe.FindStringSubmatch(trimmed); m != nil {
			lang = strings.TrimSpace(m[1])
			continue
		}
		lang = ""

		switch {
		case strings.HasPrefix(trimmed, "//"):
		case adocBlockAttrRe.MatchString(trimmed):
		default:
			out = append(out, convertASCIIDocLine(line, trimmed))
		}
	}
	if open == "----" || open == "...." {
		out = append(out, "```")
	}

	return strings.Join(out, "\n"), meta
}

func convertASCIIDocLine(line, trimmed string) string {
	if m := adocTitleRe.FindStringSubmatch(trimmed); m != nil {
		return strings.Repeat("#", len(m[1])) + " " + m[2]
	}
	if m := adocAdmonRe.FindStringSubmatch(trimmed); m != nil {
		return "**" + m[1] + ":** " + m[2]
	}
	if m := adocMacroRe.FindStringSubmatch(trimmed); m != nil {
		switch m[1] {
		case "image":
			alt := m[3]
			if alt == "" {
				alt = filepath.Base(m[2])
			}
			return "![" + alt + "](" + m[2] + ")"
		case "include":
			return "_[Include: " + m[2] + "]_"
		default:
			return "_[" + m[1] + ": " + m[2] + "]_"
		}
	}
	if m := adocListRe.FindStringSubmatch(trimmed); m != nil {
		depth := len(m[1])
		marker := "-"
		switch {
		case m[1] == "-":
			depth = 1
		case m[1][0] == '.':
			marker = "1."
		}
		return strings.Repeat("  ", depth-1) + marker + " " + m[2]
	}
	if m := adocBlockTitle.FindStringSubmatch(trimmed); m != nil {
		return "**" + m[1] + "**"
	}
	return line
}
