package generator

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/c360studio/specgen/storage"
	"github.com/c360studio/specgen/templates"
	"github.com/c360studio/specgen/workflow"
)

// InputStatus reports whether an input document is present.
type InputStatus struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// StatusReport describes a workspace's generation state.
type StatusReport struct {
	Root    string       `json:"root"`
	Primary InputStatus  `json:"primary"`
	Debt    *InputStatus `json:"debt,omitempty"`

	// State is nil when the workspace has not been initialised.
	State *workflow.WorkflowState `json:"state,omitempty"`

	// FeatureDirs lists the generated feature directories on disk.
	FeatureDirs []string `json:"feature_dirs"`
}

// Status inspects a workspace without modifying it.
func (g *Generator) Status(dir string) (*StatusReport, error) {
	root, err := g.ResolveRoot(dir)
	if err != nil {
		return nil, err
	}
	primary, debt, err := g.InputPaths(root)
	if err != nil {
		return nil, err
	}

	report := &StatusReport{
		Root:    root,
		Primary: g.inputStatus(root, primary),
	}
	if debt != "" {
		st := g.inputStatus(root, debt)
		report.Debt = &st
	}

	state, err := g.store.LoadState(root)
	switch {
	case err == nil:
		report.State = state
	case !errors.Is(err, storage.ErrStateNotFound):
		return nil, err
	}

	layout := workflow.NewLayout(root)
	names, err := g.store.ListDirs(layout.SpecsPath())
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if workflow.IsFeatureDir(name) {
			report.FeatureDirs = append(report.FeatureDirs, name)
		}
	}
	sort.Strings(report.FeatureDirs)
	return report, nil
}

func (g *Generator) inputStatus(root, path string) InputStatus {
	_, err := g.store.ReadFile(path)
	return InputStatus{Path: relPath(root, path), Exists: err == nil}
}

// InitResult reports what Init created.
type InitResult struct {
	Root  string                  `json:"root"`
	State *workflow.WorkflowState `json:"state"`
	// Templates lists template files written for customisation.
	Templates []string `json:"templates,omitempty"`
}

// Init creates the .semspec layout and workflow state of a workspace. With
// seedTemplates it also copies the built-in templates into the template
// directory, leaving existing files untouched.
func (g *Generator) Init(dir string, seedTemplates bool) (*InitResult, error) {
	root, err := g.ResolveRoot(dir)
	if err != nil {
		return nil, err
	}

	lock := g.runLock(root)
	lock.Lock()
	defer lock.Unlock()

	if err := g.store.InitializeLayout(root); err != nil {
		return nil, err
	}
	state, err := g.store.InitializeState(root, workflow.StepGenerateSpecs)
	if err != nil {
		return nil, err
	}
	result := &InitResult{Root: root, State: state}

	if !seedTemplates {
		return result, nil
	}

	templateDir, err := g.workspacePath(root, g.cfg.Templates.Dir)
	if err != nil {
		return nil, fmt.Errorf("templates dir: %w", err)
	}
	tstore, err := templates.NewStore("", g.logger)
	if err != nil {
		return nil, err
	}
	for _, name := range tstore.Names() {
		path := filepath.Join(templateDir, name+".md")
		if _, err := g.store.ReadFile(path); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}

		src, err := templates.Builtin(name)
		if err != nil {
			return nil, err
		}
		if err := g.store.WriteAtomic(path, []byte(src)); err != nil {
			return nil, err
		}
		result.Templates = append(result.Templates, relPath(root, path))
	}
	return result, nil
}
