package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/source"
)

func TestHTMLParser_Parse(t *testing.T) {
	p := NewHTMLParser(0)

	content := `<html>
<head><title>Billing Analysis</title><style>body { color: red; }</style></head>
<body>
<script>alert("ignored")</script>
<h2>Features</h2>
<p>The billing system invoices customers.</p>
<ul><li>Invoices</li><li>Refunds</li></ul>
</body>
</html>`

	tree, err := p.Parse("analysis.html", []byte(content))
	require.NoError(t, err)

	assert.Equal(t, "analysis.html", tree.Filename)
	assert.Equal(t, "Billing Analysis", tree.Title())
	assert.NotContains(t, tree.Text(), "alert")
	assert.NotContains(t, tree.Text(), "color: red")

	headings := source.HeadingsAtLevel(tree.Nodes, 2)
	require.Len(t, headings, 1)
	assert.Equal(t, "Features", headings[0].Text)

	items := source.ListItems(tree.Nodes)
	require.Len(t, items, 2)
	assert.Equal(t, "Invoices", items[0].Text)
	assert.Equal(t, "Refunds", items[1].Text)

	para, ok := source.FirstParagraph(tree.Nodes)
	require.True(t, ok)
	assert.Equal(t, "The billing system invoices customers.", para.Text)
}

func TestExtractHTMLTitle(t *testing.T) {
	assert.Equal(t, "Doc", extractHTMLTitle([]byte("<html><head><title> Doc </title></head></html>")))
	assert.Equal(t, "", extractHTMLTitle([]byte("<p>no title</p>")))
}
