package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"golang.org/x/net/html"

	"github.com/c360studio/specgen/source"
)

// Pre-compiled regexes to avoid runtime compilation per document.
var (
	headRe           = regexp.MustCompile(`(?is)<head(?:\s[^>]*)?>.*?</head>`)
	scriptRe         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	excessiveLinesRe = regexp.MustCompile(`\n{3,}`)
)

// HTMLParser converts HTML documents to markdown and parses the result.
type HTMLParser struct {
	converter *md.Converter
	markdown  *MarkdownParser
}

// NewHTMLParser creates an HTML parser sharing the markdown size limit.
func NewHTMLParser(maxBytes int) *HTMLParser {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &HTMLParser{
		converter: converter,
		markdown:  NewMarkdownParser(maxBytes),
	}
}

// Extensions returns the file extensions this parser handles.
func (p *HTMLParser) Extensions() []string {
	return []string{".html", ".htm"}
}

// Parse converts the HTML body to markdown and parses it. The HTML <title>
// becomes the tree's declared title.
func (p *HTMLParser) Parse(filename string, content []byte) (*source.Tree, error) {
	// Check the raw input first so conversion work stays bounded.
	if err := p.markdown.checkInput(filename, content); err != nil {
		return nil, err
	}

	title := extractHTMLTitle(content)

	cleaned := headRe.ReplaceAll(content, nil)
	cleaned = scriptRe.ReplaceAll(cleaned, nil)
	cleaned = styleRe.ReplaceAll(cleaned, nil)

	markdown, err := p.converter.ConvertString(string(cleaned))
	if err != nil {
		return nil, &ParseError{Filename: filename, Message: fmt.Sprintf("convert HTML: %v", err)}
	}
	markdown = excessiveLinesRe.ReplaceAllString(strings.TrimSpace(markdown), "\n\n") + "\n"

	tree := parseLines(normalizeNewlines(markdown))
	tree.Filename = filepath.Base(filename)
	tree.DeclaredTitle = title
	return tree, nil
}

// extractHTMLTitle returns the text of the first <title> element.
func extractHTMLTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	var title string
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(doc)

	return title
}
