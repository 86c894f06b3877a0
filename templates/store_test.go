package templates

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/workflow"
	"github.com/c360studio/specgen/workflow/validation"
)

func TestNewStore_Builtins(t *testing.T) {
	s, err := NewStore("", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		ConstitutionAgnostic,
		ConstitutionPrescriptive,
		Plan,
		SpecAgnostic,
		SpecPrescriptive,
	}, s.Names())

	tpl, err := s.Get(Plan)
	require.NoError(t, err)
	assert.Equal(t, "builtin", tpl.Origin)

	_, err = s.Get("nope")
	var terr *TemplateError
	require.True(t, errors.As(err, &terr))
}

func TestNewStore_Overrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "b", "plan.md"), []byte("# Custom {{featureId}}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.md"), []byte("{{#if"), 0644))

	s, err := NewStore(dir, nil)
	require.NoError(t, err)

	tpl, err := s.Get(Plan)
	require.NoError(t, err)
	assert.Equal(t, "# Custom {{featureId}}\n", tpl.Source)
	assert.Equal(t, filepath.Join(dir, "a", "b", "plan.md"), tpl.Origin)

	// Other templates keep their built-in source.
	spec, err := s.Get(SpecAgnostic)
	require.NoError(t, err)
	assert.Equal(t, "builtin", spec.Origin)
}

func TestNewStore_DuplicateOverrideFirstWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "z"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.md"), []byte("first"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z", "plan.md"), []byte("second"), 0644))

	s, err := NewStore(dir, nil)
	require.NoError(t, err)
	tpl, err := s.Get(Plan)
	require.NoError(t, err)
	assert.Equal(t, "first", tpl.Source)
}

func TestNewStore_InvalidOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.md"), []byte("{{#each tasks}}"), 0644))

	_, err := NewStore(dir, nil)
	require.Error(t, err)

	var terr *TemplateError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, Plan, terr.Template)
}

func TestNewStore_MissingDir(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	assert.Len(t, s.Names(), 5)
}

func TestTemplateNamesByRoute(t *testing.T) {
	assert.Equal(t, ConstitutionAgnostic, ConstitutionTemplate(workflow.RouteAgnostic))
	assert.Equal(t, ConstitutionPrescriptive, ConstitutionTemplate(workflow.RoutePrescriptive))
	assert.Equal(t, SpecAgnostic, SpecTemplate(workflow.RouteAgnostic))
	assert.Equal(t, SpecPrescriptive, SpecTemplate(workflow.RoutePrescriptive))
}

func TestTemplate_RenderReportsMissing(t *testing.T) {
	s, err := NewStore("", nil)
	require.NoError(t, err)
	tpl, err := s.Get(Plan)
	require.NoError(t, err)

	_, err = tpl.Render(map[string]any{"featureId": "001"})
	var terr *TemplateError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, Plan, terr.Template)
	assert.Equal(t, []string{"currentState", "featureName", "targetState"}, terr.Missing)
}

func TestBuiltinPlanRendersValidDocument(t *testing.T) {
	s, err := NewStore("", nil)
	require.NoError(t, err)
	tpl, err := s.Get(Plan)
	require.NoError(t, err)

	out, err := tpl.Render(map[string]any{
		"featureId":    "002",
		"featureName":  "Shopping Cart",
		"currentState": "Partially implemented.",
		"targetState":  "Shopping Cart is complete.",
		"tasks": []map[string]any{
			{"id": "T1", "description": "Remove item", "effort": "small", "dependencies": []string{}},
			{"id": "T2", "description": "Verify", "effort": "small", "dependencies": []string{"T1"}},
		},
		"risks": []map[string]any{},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "- **T1** Remove item (effort: small)\n")
	assert.Contains(t, out, "- **T2** Verify (effort: small; after T1)\n")
	assert.Contains(t, out, "No specific risks identified.")
	assert.False(t, strings.Contains(out, "{{"))

	result := validation.ValidateDocument(out, validation.DocumentTypePlan)
	assert.True(t, result.Valid, "missing: %v", result.MissingSections)
}

func TestBuiltin(t *testing.T) {
	src, err := Builtin(ConstitutionAgnostic)
	require.NoError(t, err)
	assert.Contains(t, src, "## Purpose")

	_, err = Builtin("nope")
	require.Error(t, err)
}
