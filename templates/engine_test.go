package templates

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/workflow"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tpl  string
		data map[string]any
		want string
	}{
		{
			name: "variable",
			tpl:  "Hello {{ name }}!",
			data: map[string]any{"name": "World"},
			want: "Hello World!",
		},
		{
			name: "missing variable renders empty",
			tpl:  "[{{absent}}]",
			want: "[]",
		},
		{
			name: "else branch",
			tpl:  "{{#if x}}A{{else}}B{{/if}}",
			data: map[string]any{"x": false},
			want: "B",
		},
		{
			name: "then branch",
			tpl:  "{{#if x}}A{{else}}B{{/if}}",
			data: map[string]any{"x": "yes"},
			want: "A",
		},
		{
			name: "each with this",
			tpl:  "{{#each items}}{{this}},{{/each}}",
			data: map[string]any{"items": []string{"a", "b"}},
			want: "a,b,",
		},
		{
			name: "each over maps reads fields and outer scope",
			tpl:  "{{#each people}}{{name}}@{{team}} {{/each}}",
			data: map[string]any{
				"team":   "core",
				"people": []map[string]any{{"name": "ana"}, {"name": "bo"}},
			},
			want: "ana@core bo@core ",
		},
		{
			name: "if nested in each",
			tpl:  "{{#each items}}{{#if done}}x{{else}}o{{/if}}{{/each}}",
			data: map[string]any{"items": []any{
				map[string]any{"done": true},
				map[string]any{"done": false},
			}},
			want: "xo",
		},
		{
			name: "each over absent list renders nothing",
			tpl:  "a{{#each nothing}}x{{/each}}b",
			want: "ab",
		},
		{
			name: "slice variable joins",
			tpl:  "{{deps}}",
			data: map[string]any{"deps": []string{"T1", "T2"}},
			want: "T1, T2",
		},
		{
			name: "stringer",
			tpl:  "{{route}}",
			data: map[string]any{"route": workflow.RoutePrescriptive},
			want: "prescriptive",
		},
		{
			name: "empty named string is false",
			tpl:  "{{#if s}}set{{else}}unset{{/if}}",
			data: map[string]any{"s": workflow.FeatureStatus("")},
			want: "unset",
		},
		{
			name: "standalone block lines are removed",
			tpl:  "# List\n\n{{#each items}}\n- {{this}}\n{{/each}}\n{{#if extra}}\n\nExtra\n{{/if}}\nEnd\n",
			data: map[string]any{"items": []string{"a", "b"}, "extra": true},
			want: "# List\n\n- a\n- b\n\nExtra\nEnd\n",
		},
		{
			name: "indented standalone tag",
			tpl:  "start\n  {{#if x}}\n  in\n  {{/if}}\nend",
			data: map[string]any{"x": 1},
			want: "start\n  in\nend",
		},
		{
			name: "inline blocks keep their line",
			tpl:  "- a{{#if b}}, b{{/if}}.\n",
			data: map[string]any{"b": "y"},
			want: "- a, b.\n",
		},
		{
			name: "variable substituted text is not re-parsed",
			tpl:  "{{value}}",
			data: map[string]any{"value": "{{#if x}}"},
			want: "{{#if x}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tpl, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		tpl  string
		msg  string
	}{
		{"unterminated tag", "a {{name", "unterminated tag"},
		{"unclosed if", "{{#if x}}a", "missing {{/if}}"},
		{"stray close", "a{{/if}}", "unexpected {{/if}}"},
		{"mismatched close", "{{#if x}}a{{/each}}", "closed by {{/each}}"},
		{"else in each", "{{#each x}}a{{else}}b{{/each}}", "only valid inside"},
		{"duplicate else", "{{#if x}}a{{else}}b{{else}}c{{/if}}", "duplicate {{else}}"},
		{"malformed block", "{{#if}}a{{/if}}", "unsupported tag"},
		{"two keys", "{{#if a b}}x{{/if}}", "malformed block tag"},
		{"bad identifier", "{{foo.bar}}", "unsupported tag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.tpl, nil)
			require.Error(t, err)

			var terr *TemplateError
			require.True(t, errors.As(err, &terr))
			assert.Contains(t, terr.Message, tt.msg)
		})
	}
}

func TestRender_ErrorLine(t *testing.T) {
	_, err := Render("line one\nline two\n{{#each x}}\n", nil)
	var terr *TemplateError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 3, terr.Line)
}

func TestRender_EachNeedsList(t *testing.T) {
	_, err := Render("{{#each name}}x{{/each}}", map[string]any{"name": "scalar"})
	require.Error(t, err)

	var terr *TemplateError
	require.True(t, errors.As(err, &terr))
	assert.Contains(t, terr.Message, "needs a list")
}

func TestMissingVariables(t *testing.T) {
	tpl := "{{title}} {{#if flag}}{{shown}}{{else}}{{other}}{{/if}} {{#each rows}}{{id}} {{label}}{{/each}}"
	data := map[string]any{
		"title": "T",
		"rows": []any{
			map[string]any{"id": 1, "label": "a"},
			map[string]any{"id": 2},
		},
	}

	missing, err := MissingVariables(tpl, data)
	require.NoError(t, err)
	// Block keys are not variables; both if branches are checked; each
	// element must provide the loop fields.
	assert.Equal(t, []string{"label", "other", "shown"}, missing)

	none, err := MissingVariables("{{#each xs}}{{this}}{{/each}}", map[string]any{"xs": []string{"a"}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMissingVariables_ParseError(t *testing.T) {
	_, err := MissingVariables("{{#if x}}", nil)
	require.Error(t, err)
}

func TestTemplateError_Error(t *testing.T) {
	err := &TemplateError{Template: "plan", Line: 4, Message: "bad", Missing: []string{"a", "b"}}
	assert.Equal(t, "template plan:4: bad; missing variables: a, b", err.Error())

	err = &TemplateError{Missing: []string{"x"}}
	assert.Equal(t, "template: missing variables: x", err.Error())
}
