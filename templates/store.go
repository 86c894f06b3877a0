package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/specgen/workflow"
)

//go:embed defaults/*.md
var defaultsFS embed.FS

// Template names.
const (
	ConstitutionAgnostic     = "constitution-agnostic"
	ConstitutionPrescriptive = "constitution-prescriptive"
	SpecAgnostic             = "spec-agnostic"
	SpecPrescriptive         = "spec-prescriptive"
	Plan                     = "plan"
)

// ConstitutionTemplate returns the constitution template name for a route.
func ConstitutionTemplate(route workflow.Route) string {
	if route == workflow.RoutePrescriptive {
		return ConstitutionPrescriptive
	}
	return ConstitutionAgnostic
}

// SpecTemplate returns the feature specification template name for a route.
func SpecTemplate(route workflow.Route) string {
	if route == workflow.RoutePrescriptive {
		return SpecPrescriptive
	}
	return SpecAgnostic
}

// Template is a named, pre-validated template source.
type Template struct {
	Name   string
	Source string
	// Origin is the override file path, or "builtin".
	Origin string
}

// Render renders the template against data. Absent variables are reported
// as a TemplateError before anything is rendered.
func (t *Template) Render(data map[string]any) (string, error) {
	missing, err := MissingVariables(t.Source, data)
	if err != nil {
		return "", t.named(err)
	}
	if len(missing) > 0 {
		return "", &TemplateError{Template: t.Name, Missing: missing}
	}
	out, err := Render(t.Source, data)
	if err != nil {
		return "", t.named(err)
	}
	return out, nil
}

func (t *Template) named(err error) error {
	if terr, ok := err.(*TemplateError); ok && terr.Template == "" {
		copied := *terr
		copied.Template = t.Name
		return &copied
	}
	return err
}

// Store holds the built-in templates, replaced by same-named overrides from a
// directory.
type Store struct {
	templates map[string]*Template
	logger    *slog.Logger
}

// NewStore loads the built-in templates and then any "*.md" file below dir
// (at any depth) whose base name matches a template name. An empty or absent
// dir means built-ins only. Every template is parsed up front.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		templates: make(map[string]*Template),
		logger:    logger,
	}

	if err := s.loadDefaults(); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := s.loadOverrides(dir); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) loadDefaults() error {
	entries, err := fs.ReadDir(defaultsFS, "defaults")
	if err != nil {
		return fmt.Errorf("read builtin templates: %w", err)
	}
	for _, entry := range entries {
		content, err := defaultsFS.ReadFile(path.Join("defaults", entry.Name()))
		if err != nil {
			return fmt.Errorf("read builtin template %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		if err := s.add(name, string(content), "builtin"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadOverrides(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat template dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("template dir %s is not a directory", dir)
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(dir, "**", "*.md"))
	if err != nil {
		return fmt.Errorf("glob template dir: %w", err)
	}
	sort.Strings(matches)

	seen := make(map[string]string)
	for _, match := range matches {
		name := strings.TrimSuffix(filepath.Base(match), ".md")
		if _, known := s.templates[name]; !known {
			s.logger.Debug("Ignoring unknown template", "path", match)
			continue
		}
		if first, dup := seen[name]; dup {
			s.logger.Warn("Duplicate template override ignored", "name", name, "path", match, "using", first)
			continue
		}
		seen[name] = match

		content, err := os.ReadFile(match)
		if err != nil {
			return fmt.Errorf("read template %s: %w", match, err)
		}
		if err := s.add(name, string(content), match); err != nil {
			return err
		}
		s.logger.Debug("Loaded template override", "name", name, "path", match)
	}
	return nil
}

func (s *Store) add(name, src, origin string) error {
	if _, err := parse(src); err != nil {
		t := &Template{Name: name}
		return t.named(err)
	}
	s.templates[name] = &Template{Name: name, Source: src, Origin: origin}
	return nil
}

// Get returns the named template.
func (s *Store) Get(name string) (*Template, error) {
	t, ok := s.templates[name]
	if !ok {
		return nil, &TemplateError{Template: name, Message: "unknown template"}
	}
	return t, nil
}

// Names returns the template names, sorted.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns the embedded source of a template, for seeding an
// override directory.
func Builtin(name string) (string, error) {
	content, err := defaultsFS.ReadFile(path.Join("defaults", name+".md"))
	if err != nil {
		return "", &TemplateError{Template: name, Message: "unknown template"}
	}
	return string(content), nil
}
