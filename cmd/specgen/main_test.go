package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/config"
	"github.com/c360studio/specgen/generator"
	"github.com/c360studio/specgen/output/printer"
	"github.com/c360studio/specgen/workflow"
)

const loginDoc = `# Shop

An online shop that sells books to readers everywhere.

# Features

## Login

Users sign in.

- [x] Email validated
- [ ] Password reset
`

type cliEnv struct {
	root       string
	configPath string
}

func newCLIEnv(t *testing.T, primary string) cliEnv {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	if primary != "" {
		path := filepath.Join(root, workflow.DefaultPrimaryInput)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(primary), 0o644))
	}

	cfg := config.DefaultConfig()
	cfg.Workspace.Roots = []string{root}
	configPath := filepath.Join(t.TempDir(), "specgen.yaml")
	require.NoError(t, cfg.SaveToFile(configPath))
	return cliEnv{root: root, configPath: configPath}
}

func (e cliEnv) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out, errOut bytes.Buffer
	cmd := rootCmd(printer.New(&out, &errOut))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	env := newCLIEnv(t, "")
	out, _, err := env.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "specgen version "+Version)
}

func TestGenerate(t *testing.T) {
	env := newCLIEnv(t, loginDoc)

	out, _, err := env.run(t, "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ .semspec/memory/constitution.md\n")
	assert.Contains(t, out, "✓ .semspec/specs/001-login/spec.md\n")
	assert.Contains(t, out, "Wrote 3 of 3 documents for 1 features (1 partial), 1 plans")
	assert.FileExists(t, filepath.Join(env.root, ".semspec/specs/001-login/plan.md"))

	out, _, err = env.run(t, "generate", env.root)
	require.NoError(t, err)
	assert.Contains(t, out, ".semspec/memory/constitution.md (unchanged)")
	assert.Contains(t, out, "Wrote 0 of 3 documents")
}

func TestGenerate_DryRunJSON(t *testing.T) {
	env := newCLIEnv(t, loginDoc)

	out, _, err := env.run(t, "generate", "--dry-run", "--json")
	require.NoError(t, err)

	var res generator.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.DryRun)
	assert.Len(t, res.Artifacts, 3)
	assert.Contains(t, res.Diffs, ".semspec/memory/constitution.md")
	assert.NoDirExists(t, filepath.Join(env.root, workflow.RootDir))
}

func TestGenerate_MetricsFile(t *testing.T) {
	env := newCLIEnv(t, loginDoc)
	metrics := filepath.Join(t.TempDir(), "specgen.prom")

	_, _, err := env.run(t, "generate", "--metrics-file", metrics)
	require.NoError(t, err)
	content, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(content), `specgen_runs_total{outcome="success"} 1`)
}

func TestGenerate_Failure(t *testing.T) {
	env := newCLIEnv(t, "")

	out, stderr, err := env.run(t, "generate")
	require.Error(t, err)
	var reported *reportedError
	assert.True(t, errors.As(err, &reported))
	assert.Empty(t, out)
	assert.Contains(t, stderr, "File system operation failed\n")
	assert.Contains(t, stderr, "  Path: "+filepath.Join(env.root, workflow.DefaultPrimaryInput))
	assert.Contains(t, stderr, "reverse engineering")
}

func TestGenerate_InvalidRoute(t *testing.T) {
	env := newCLIEnv(t, loginDoc)
	_, _, err := env.run(t, "generate", "--route", "sideways")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid route")
}

func TestGenerate_InvalidConfig(t *testing.T) {
	env := newCLIEnv(t, loginDoc)
	require.NoError(t, os.WriteFile(env.configPath, []byte("generation:\n  default_route: sideways\n"), 0o644))

	_, stderr, err := env.run(t, "generate")
	require.Error(t, err)
	assert.Contains(t, stderr, "Invalid configuration")
}

func TestStatus(t *testing.T) {
	env := newCLIEnv(t, loginDoc)

	out, _, err := env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Primary input: "+workflow.DefaultPrimaryInput)
	assert.Contains(t, out, "Debt input: "+workflow.DefaultDebtInput+" (missing)")
	assert.Contains(t, out, "Not initialized")

	_, _, err = env.run(t, "generate")
	require.NoError(t, err)

	out, _, err = env.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Route: agnostic")
	assert.Contains(t, out, "  001-login\n")

	out, _, err = env.run(t, "status", "--json")
	require.NoError(t, err)
	var report generator.StatusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, []string{"001-login"}, report.FeatureDirs)
}

func TestInit(t *testing.T) {
	env := newCLIEnv(t, "")

	out, _, err := env.run(t, "init", "--templates", env.root)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Initialized "+env.root)
	assert.Contains(t, out, ".semspec/templates/plan.md")
	assert.FileExists(t, filepath.Join(env.root, ".semspec/templates/plan.md"))
	assert.FileExists(t, workflow.NewLayout(env.root).StatePath())
}

func TestInit_UserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	env := newCLIEnv(t, "")

	out, _, err := env.run(t, "init", "--user-config", env.root)
	require.NoError(t, err)
	path := filepath.Join(home, config.UserConfigDir, config.UserConfigFile)
	assert.Contains(t, out, "User config: "+path)
	assert.FileExists(t, path)
}

func TestRootOverride(t *testing.T) {
	env := newCLIEnv(t, "")
	other := newCLIEnv(t, loginDoc)

	_, stderr, err := env.run(t, "generate", other.root)
	require.Error(t, err)
	assert.Contains(t, stderr, "Path rejected")

	_, _, err = env.run(t, "--root", other.root, "generate")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(other.root, ".semspec/memory/constitution.md"))
}
