// Package config provides configuration loading and management for specgen.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/specgen/workflow"
)

// Config represents the complete specgen configuration
type Config struct {
	Workspace  WorkspaceConfig  `yaml:"workspace"`
	Inputs     InputsConfig     `yaml:"inputs"`
	Parser     ParserConfig     `yaml:"parser"`
	Templates  TemplatesConfig  `yaml:"templates"`
	Generation GenerationConfig `yaml:"generation"`
	Watch      WatchConfig      `yaml:"watch"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// WorkspaceConfig configures which directories may be read and written
type WorkspaceConfig struct {
	// Roots are the allowed workspace roots (auto-detected from git if empty)
	Roots []string `yaml:"roots"`
}

// InputsConfig locates the narrative documents, relative to the workspace
type InputsConfig struct {
	// Primary is the functional specification (required)
	Primary string `yaml:"primary"`
	// Debt is the technical debt analysis (optional)
	Debt string `yaml:"debt"`
}

// ParserConfig configures document parsing
type ParserConfig struct {
	// MaxBytes bounds the size of an input document
	MaxBytes int `yaml:"max_bytes"`
}

// TemplatesConfig configures template overrides
type TemplatesConfig struct {
	// Dir holds override templates, relative to the workspace
	// (default: .semspec/templates)
	Dir string `yaml:"dir"`
}

// GenerationConfig configures the generation run
type GenerationConfig struct {
	// DefaultRoute is used when neither the request nor the workflow state
	// names a route
	DefaultRoute string `yaml:"default_route"`
	// Prune removes feature directories that are no longer generated
	Prune bool `yaml:"prune"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	// Debounce is the quiet period before a change triggers a run
	Debounce time.Duration `yaml:"debounce"`
}

// MetricsConfig configures metrics export
type MetricsConfig struct {
	// Textfile is a Prometheus textfile written after each run (empty = off)
	Textfile string `yaml:"textfile"`
}

// DefaultMaxBytes is the default input size limit (10 MiB).
const DefaultMaxBytes = 10 << 20

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Roots: nil, // Auto-detect
		},
		Inputs: InputsConfig{
			Primary: workflow.DefaultPrimaryInput,
			Debt:    workflow.DefaultDebtInput,
		},
		Parser: ParserConfig{
			MaxBytes: DefaultMaxBytes,
		},
		Templates: TemplatesConfig{
			Dir: filepath.Join(workflow.RootDir, workflow.TemplatesDir),
		},
		Generation: GenerationConfig{
			DefaultRoute: string(workflow.RouteAgnostic),
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Inputs.Primary == "" {
		return fmt.Errorf("inputs.primary is required")
	}
	if c.Parser.MaxBytes <= 0 {
		return fmt.Errorf("parser.max_bytes must be positive")
	}
	if _, err := workflow.ParseRoute(c.Generation.DefaultRoute); err != nil {
		return fmt.Errorf("generation.default_route: %w", err)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// Route returns the configured default route.
func (c *Config) Route() workflow.Route {
	r, err := workflow.ParseRoute(c.Generation.DefaultRoute)
	if err != nil {
		return workflow.RouteAgnostic
	}
	return r
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Workspace
	if len(other.Workspace.Roots) > 0 {
		c.Workspace.Roots = other.Workspace.Roots
	}

	// Inputs
	if other.Inputs.Primary != "" {
		c.Inputs.Primary = other.Inputs.Primary
	}
	if other.Inputs.Debt != "" {
		c.Inputs.Debt = other.Inputs.Debt
	}

	// Parser
	if other.Parser.MaxBytes != 0 {
		c.Parser.MaxBytes = other.Parser.MaxBytes
	}

	// Templates
	if other.Templates.Dir != "" {
		c.Templates.Dir = other.Templates.Dir
	}

	// Generation
	if other.Generation.DefaultRoute != "" {
		c.Generation.DefaultRoute = other.Generation.DefaultRoute
	}
	if other.Generation.Prune {
		c.Generation.Prune = true
	}

	// Watch
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}

	// Metrics
	if other.Metrics.Textfile != "" {
		c.Metrics.Textfile = other.Metrics.Textfile
	}
}
