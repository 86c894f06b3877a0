package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/source"
)

const adocShop = `= Shop
:author: Jane Doe
:toc:

An online shop for independent bookstores.

== Features

=== User Login

Shoppers sign in with email.

* [x] Email validated
* [ ] Password reset
** Reset link expires

NOTE: Sessions last one day.

[source,go]
----
func Login() {}
----

////
Internal comment
////

=== Search

. Find by title
. Find by author
`

func TestASCIIDocParser_Parse(t *testing.T) {
	p := NewASCIIDocParser(0)

	tree, err := p.Parse("docs/shop.adoc", []byte(adocShop))
	require.NoError(t, err)

	assert.Equal(t, "shop.adoc", tree.Filename)
	assert.Equal(t, "Shop", tree.Title())
	assert.Equal(t, map[string]any{"author": "Jane Doe", "toc": true}, tree.Frontmatter)
	assert.NotContains(t, tree.Text(), "Internal comment")

	features := source.HeadingsAtLevel(tree.Nodes, 3)
	require.Len(t, features, 2)
	assert.Equal(t, "User Login", features[0].Text)
	assert.Equal(t, "Search", features[1].Text)
	require.Len(t, source.HeadingsAtLevel(tree.Nodes, 2), 1)

	sections := source.Sections(tree.Nodes, 3)
	require.Len(t, sections, 2)

	items := source.ListItems(sections[0].Body)
	require.Len(t, items, 3)
	assert.Equal(t, "[x] Email validated", items[0].Text)
	assert.Equal(t, "[ ] Password reset", items[1].Text)
	assert.Equal(t, 1, items[2].Indent)

	var code *source.Node
	for i, n := range sections[0].Body {
		if n.Kind == source.KindCodeBlock {
			code = &sections[0].Body[i]
		}
	}
	require.NotNil(t, code)
	assert.Equal(t, "go", code.Language)
	assert.Equal(t, "func Login() {}", code.Text)

	ordered := source.ListItems(sections[1].Body)
	require.Len(t, ordered, 2)
	assert.True(t, ordered[0].Ordered)
}

func TestASCIIDocToMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"symmetric title", "== Overview ==", "## Overview"},
		{"admonition", "WARNING: Do not skip.", "**WARNING:** Do not skip."},
		{"image", "image::diagram.png[]", "![diagram.png](diagram.png)"},
		{"include", "include::chapter.adoc[]", "_[Include: chapter.adoc]_"},
		{"block title", ".Example request", "**Example request**"},
		{"literal block", "....\nraw *text*\n....", "```\nraw *text*\n```"},
		{"example delimiters dropped", "====\nInside\n====", "Inside"},
		{"block attribute dropped", "[NOTE]\nSee above.", "See above."},
		{"unclosed listing", "----\ncode", "```\ncode\n```"},
		{"dash list", "- one", "- one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := asciiDocToMarkdown(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestASCIIDocToMarkdown_UnsetAttribute(t *testing.T) {
	_, meta := asciiDocToMarkdown("= Doc\n:draft:\n:draft!:\n:version: 2\n\nBody")
	assert.Equal(t, map[string]any{"version": "2"}, meta)
}

func TestASCIIDocParser_InvalidUTF8(t *testing.T) {
	_, err := NewASCIIDocParser(0).Parse("bad.adoc", []byte("= Doc\n\n\xff\n"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
}
