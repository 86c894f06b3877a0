package workflow

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Directory constants for the .semspec structure.
const (
	RootDir        = ".semspec"
	MemoryDir      = "memory"
	SpecsDir       = "specs"
	TemplatesDir   = "templates"
	ConstitutionMD = "constitution.md"
	SpecFile       = "spec.md"
	PlanFile       = "plan.md"
	StateFile      = "state.json"
)

// Default input locations written by the reverse engineering stage.
const (
	DefaultPrimaryInput = "docs/reverse-engineering/functional-specification.md"
	DefaultDebtInput    = "docs/reverse-engineering/technical-debt-analysis.md"
)

// featureDirPattern matches generated feature directories ("001-user-login").
var featureDirPattern = regexp.MustCompile(`^\d{3}-[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Layout resolves the paths of the generated document tree under a root.
type Layout struct {
	root string
}

// NewLayout creates a layout for the given (already validated) root.
func NewLayout(root string) Layout {
	return Layout{root: root}
}

// Root returns the workspace root the layout was created for.
func (l Layout) Root() string {
	return l.root
}

// RootPath returns the full path to the .semspec directory.
func (l Layout) RootPath() string {
	return filepath.Join(l.root, RootDir)
}

// MemoryPath returns the directory holding the constitution.
func (l Layout) MemoryPath() string {
	return filepath.Join(l.RootPath(), MemoryDir)
}

// ConstitutionPath returns the path to constitution.md.
func (l Layout) ConstitutionPath() string {
	return filepath.Join(l.MemoryPath(), ConstitutionMD)
}

// SpecsPath returns the path to the specs directory.
func (l Layout) SpecsPath() string {
	return filepath.Join(l.RootPath(), SpecsDir)
}

// TemplatesPath returns the directory holding template overrides.
func (l Layout) TemplatesPath() string {
	return filepath.Join(l.RootPath(), TemplatesDir)
}

// StatePath returns the path to the workflow state file.
func (l Layout) StatePath() string {
	return filepath.Join(l.RootPath(), StateFile)
}

// FeaturePath returns the directory for a feature's documents.
func (l Layout) FeaturePath(f Feature) string {
	return filepath.Join(l.SpecsPath(), f.Dir())
}

// SpecPath returns the path to a feature's spec.md.
func (l Layout) SpecPath(f Feature) string {
	return filepath.Join(l.FeaturePath(f), SpecFile)
}

// PlanPath returns the path to a feature's plan.md.
func (l Layout) PlanPath(f Feature) string {
	return filepath.Join(l.FeaturePath(f), PlanFile)
}

// Directories returns every directory of the layout, parents first.
func (l Layout) Directories() []string {
	return []string{
		l.RootPath(),
		l.MemoryPath(),
		l.SpecsPath(),
		l.TemplatesPath(),
	}
}

// Contains returns true if path lies inside the .semspec subtree.
func (l Layout) Contains(path string) bool {
	rel, err := filepath.Rel(l.RootPath(), path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// IsFeatureDir returns true if name looks like a generated feature directory.
func IsFeatureDir(name string) bool {
	return featureDirPattern.MatchString(name)
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a feature name to a URL-friendly slug: lower-cased, runs
// of non-alphanumeric characters collapsed to one hyphen, hyphens trimmed.
func Slugify(name string) string {
	slug := strings.ToLower(name)
	slug = nonAlphanumeric.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
