package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "specgen.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/specgen"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "SPECGEN_"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger

	// Replaced in tests.
	getenv     func(string) string
	detectRoot func() string
	workDir    string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger, getenv: os.Getenv}
	l.detectRoot = l.detectGitRoot
	return l
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/specgen/config.yaml)
// 3. Project config (specgen.yaml in current or parent directories)
// 4. Environment variables (SPECGEN_*)
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Load user config
	userConfigPath := l.userConfigPath()
	if userConfigPath != "" {
		if userConfig, err := loadLayer(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	// Load project config
	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if projectConfig, err := loadLayer(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	// Environment overrides
	config.Merge(l.envConfig())

	// Auto-detect workspace root if not set
	if len(config.Workspace.Roots) == 0 {
		if gitRoot := l.detectRoot(); gitRoot != "" {
			config.Workspace.Roots = []string{gitRoot}
			l.logger.Debug("Auto-detected git root", slog.String("path", gitRoot))
		} else if cwd := l.cwd(); cwd != "" {
			// Fall back to current directory
			config.Workspace.Roots = []string{cwd}
			l.logger.Debug("Using current directory as workspace root", slog.String("path", cwd))
		}
	}

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// envConfig reads SPECGEN_* overrides. Unparseable values are logged and
// ignored.
func (l *Loader) envConfig() *Config {
	env := &Config{}
	get := func(key string) string {
		return strings.TrimSpace(l.getenv(EnvPrefix + key))
	}

	if v := get("ROOTS"); v != "" {
		env.Workspace.Roots = filepath.SplitList(v)
	}
	env.Inputs.Primary = get("PRIMARY")
	env.Inputs.Debt = get("DEBT")
	env.Templates.Dir = get("TEMPLATES_DIR")
	env.Generation.DefaultRoute = get("ROUTE")
	env.Metrics.Textfile = get("METRICS_FILE")

	if v := get("MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			env.Parser.MaxBytes = n
		} else {
			l.logger.Warn("Ignoring invalid environment override", slog.String("key", EnvPrefix+"MAX_BYTES"), slog.String("value", v))
		}
	}
	if v := get("PRUNE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			env.Generation.Prune = b
		} else {
			l.logger.Warn("Ignoring invalid environment override", slog.String("key", EnvPrefix+"PRUNE"), slog.String("value", v))
		}
	}
	if v := get("WATCH_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			env.Watch.Debounce = d
		} else {
			l.logger.Warn("Ignoring invalid environment override", slog.String("key", EnvPrefix+"WATCH_DEBOUNCE"), slog.String("value", v))
		}
	}
	return env
}

// EnsureUserConfig writes the default configuration to the user config path
// unless a file is already there. It returns the path.
func (l *Loader) EnsureUserConfig() (string, error) {
	path := l.userConfigPath()
	if path == "" {
		return "", fmt.Errorf("cannot determine user config directory")
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := DefaultConfig().SaveToFile(path); err != nil {
		return "", err
	}
	l.logger.Info("Created default user config", slog.String("path", path))
	return path, nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

func (l *Loader) cwd() string {
	if l.workDir != "" {
		return l.workDir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return cwd
}

// findProjectConfig searches for specgen.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	dir := l.cwd()
	if dir == "" {
		return ""
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// detectGitRoot finds the git repository root from the working directory
func (l *Loader) detectGitRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = l.cwd()
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}

// loadLayer reads a config file without applying defaults, so that only the
// values it sets take part in the merge.
func loadLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	layer := &Config{}
	if err := yaml.Unmarshal(data, layer); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return layer, nil
}
