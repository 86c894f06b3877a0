package generator

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/config"
	"github.com/c360studio/specgen/workflow"
)

func TestStatus(t *testing.T) {
	root := workspace(t, shopDoc, "")
	g := newGenerator(t, root)

	report, err := g.Status("")
	require.NoError(t, err)
	assert.Equal(t, root, report.Root)
	assert.Equal(t, InputStatus{Path: workflow.DefaultPrimaryInput, Exists: true}, report.Primary)
	require.NotNil(t, report.Debt)
	assert.False(t, report.Debt.Exists)
	assert.Nil(t, report.State)
	assert.Empty(t, report.FeatureDirs)

	_, err = g.Run(context.Background(), Request{})
	require.NoError(t, err)

	report, err = g.Status(root)
	require.NoError(t, err)
	require.NotNil(t, report.State)
	assert.True(t, report.State.IsCompleted(workflow.StepGenerateSpecs))
	assert.Equal(t, []string{
		"001-user-login",
		"002-shopping-cart",
		"003-checkout",
		"004-search",
		"005-wishlist",
	}, report.FeatureDirs)
}

func TestStatus_NoDebtInput(t *testing.T) {
	root := workspace(t, shopDoc, "")
	g := newGenerator(t, root, func(c *config.Config) { c.Inputs.Debt = "" })

	report, err := g.Status("")
	require.NoError(t, err)
	assert.Nil(t, report.Debt)
}

func TestInit(t *testing.T) {
	root := workspace(t, "", "")
	g := newGenerator(t, root)

	res, err := g.Init("", false)
	require.NoError(t, err)
	assert.Equal(t, root, res.Root)
	assert.Empty(t, res.Templates)
	assert.Equal(t, workflow.StepGenerateSpecs, res.State.CurrentStep)
	assert.DirExists(t, filepath.Join(root, ".semspec/memory"))
	assert.DirExists(t, filepath.Join(root, ".semspec/specs"))
	assert.FileExists(t, workflow.NewLayout(root).StatePath())
	assert.NoFileExists(t, filepath.Join(root, ".semspec/templates/plan.md"))
}

func TestInit_SeedTemplates(t *testing.T) {
	root := workspace(t, "", "")
	g := newGenerator(t, root)

	custom := "# My plan {{featureId}}\n"
	writeFile(t, filepath.Join(root, ".semspec/templates/plan.md"), custom)

	res, err := g.Init(root, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		".semspec/templates/constitution-agnostic.md",
		".semspec/templates/constitution-prescriptive.md",
		".semspec/templates/spec-agnostic.md",
		".semspec/templates/spec-prescriptive.md",
	}, res.Templates)

	assert.Equal(t, custom, readFile(t, filepath.Join(root, ".semspec/templates/plan.md")))
	assert.Contains(t, readFile(t, filepath.Join(root, ".semspec/templates/spec-agnostic.md")), "{{name}}")

	// A second init keeps the existing state and writes nothing.
	again, err := g.Init(root, true)
	require.NoError(t, err)
	assert.Empty(t, again.Templates)
	assert.True(t, res.State.UpdatedAt.Equal(again.State.UpdatedAt))
}

func TestInit_OutsideRoot(t *testing.T) {
	root := workspace(t, "", "")
	g := newGenerator(t, root)

	_, err := g.Init(t.TempDir(), false)
	require.Error(t, err)
}
