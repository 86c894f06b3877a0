package workflow

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"User Authentication & Login", "user-authentication-login"},
		{"Fix Bug #123", "fix-bug-123"},
		{"Multiple   spaces", "multiple-spaces"},
		{"Already-slugified", "already-slugified"},
		{"UPPERCASE", "uppercase"},
		{"special!@#$%chars", "special-chars"},
		{"", ""},
		{"   leading and trailing   ", "leading-and-trailing"},
		{"--Report_Export (CSV)--", "report-export-csv"},
		{"Café ordering", "caf-ordering"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestSlugify_Injective(t *testing.T) {
	names := []string{
		"User Authentication & Login",
		"User Registration",
		"Password Reset",
		"Report Export",
		"Audit Log",
	}
	seen := make(map[string]string)
	for _, n := range names {
		slug := Slugify(n)
		prev, dup := seen[slug]
		require.False(t, dup, "%q and %q share slug %q", prev, n, slug)
		seen[slug] = n
		assert.Equal(t, slug, Slugify(n), "slug must be stable")
	}
}

func TestLayout_Paths(t *testing.T) {
	root := t.TempDir()
	l := NewLayout(root)
	f := Feature{ID: "003", Slug: "audit-log"}

	assert.Equal(t, filepath.Join(root, ".semspec", "memory", "constitution.md"), l.ConstitutionPath())
	assert.Equal(t, filepath.Join(root, ".semspec", "specs", "003-audit-log", "spec.md"), l.SpecPath(f))
	assert.Equal(t, filepath.Join(root, ".semspec", "specs", "003-audit-log", "plan.md"), l.PlanPath(f))
	assert.Equal(t, filepath.Join(root, ".semspec", "state.json"), l.StatePath())
	assert.Len(t, l.Directories(), 4)
}

func TestLayout_Contains(t *testing.T) {
	root := t.TempDir()
	l := NewLayout(root)

	assert.True(t, l.Contains(filepath.Join(root, ".semspec", "specs", "001-a", "spec.md")))
	assert.False(t, l.Contains(filepath.Join(root, ".semspec")))
	assert.False(t, l.Contains(filepath.Join(root, "README.md")))
	assert.False(t, l.Contains(filepath.Join(root, ".semspec", "..", "x.md")))
}

func TestIsFeatureDir(t *testing.T) {
	assert.True(t, IsFeatureDir("001-user-login"))
	assert.True(t, IsFeatureDir("120-x"))
	assert.False(t, IsFeatureDir("templates"))
	assert.False(t, IsFeatureDir("01-short-id"))
	assert.False(t, IsFeatureDir("001-"))
}

func TestParseRoute(t *testing.T) {
	r, err := ParseRoute("Prescriptive")
	require.NoError(t, err)
	assert.Equal(t, RoutePrescriptive, r)

	r, err = ParseRoute(" agnostic ")
	require.NoError(t, err)
	assert.Equal(t, RouteAgnostic, r)

	_, err = ParseRoute("hybrid")
	assert.Error(t, err)
}

func TestWorkflowState_MarkCompletedIsASet(t *testing.T) {
	s := NewWorkflowState(StepReverseEngineer, time.Time{})
	s.MarkCompleted(StepReverseEngineer, StepDetail{RunID: "a"})
	s.MarkCompleted(StepGenerateSpecs, StepDetail{RunID: "b"})
	s.MarkCompleted(StepGenerateSpecs, StepDetail{RunID: "c"})

	assert.Equal(t, []string{StepReverseEngineer, StepGenerateSpecs}, s.CompletedSteps)
	assert.Equal(t, "c", s.Steps[StepGenerateSpecs].RunID)
	assert.True(t, s.IsCompleted(StepGenerateSpecs))
}

func TestWorkflowState_Route(t *testing.T) {
	s := NewWorkflowState("x", time.Time{})
	_, ok := s.Route()
	assert.False(t, ok)

	s.SetRoute(RoutePrescriptive)
	r, ok := s.Route()
	require.True(t, ok)
	assert.Equal(t, RoutePrescriptive, r)

	s.Metadata[MetadataRoute] = "bogus"
	_, ok = s.Route()
	assert.False(t, ok)
}

func TestFeature_Criteria(t *testing.T) {
	f := Feature{AcceptanceCriteria: []AcceptanceCriterion{
		{Description: "a", Satisfied: true},
		{Description: "b"},
		{Description: "c"},
	}}
	assert.Equal(t, 1, f.SatisfiedCount())
	assert.Len(t, f.UnmetCriteria(), 2)
	assert.True(t, StatusPartial.NeedsPlan())
	assert.False(t, StatusComplete.NeedsPlan())
}
