package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/specgen/config"
	"github.com/c360studio/specgen/generator"
	"github.com/c360studio/specgen/output/printer"
)

// app carries the global flags and shared plumbing of all commands.
type app struct {
	configPath string
	roots      []string
	logLevel   string

	printer *printer.Printer
	logger  *slog.Logger
}

// reportedError marks an error that has already been printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func (a *app) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	switch strings.ToLower(a.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)
	return nil
}

// loadConfig reads --config when given, otherwise the layered configuration.
// --root replaces the configured roots.
func (a *app) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromFile(a.configPath)
	} else {
		cfg, err = config.NewLoader(a.logger).Load()
	}
	if err != nil {
		return nil, a.configError(err)
	}

	if len(a.roots) > 0 {
		cfg.Workspace.Roots = a.roots
	}
	if err := cfg.Validate(); err != nil {
		return nil, a.configError(err)
	}
	return cfg, nil
}

func (a *app) configError(err error) error {
	return &reportedError{err: a.printer.Error(
		"Invalid configuration",
		err.Error(),
		[]string{"Fix specgen.yaml, ~/.config/specgen/config.yaml or the SPECGEN_* environment, then run again."},
	)}
}

func (a *app) newGenerator(cfg *config.Config) (*generator.Generator, error) {
	g, err := generator.New(cfg, generator.WithLogger(a.logger))
	if err != nil {
		return nil, a.configError(err)
	}
	return g, nil
}

// fail prints err as a classified failure.
func (a *app) fail(err error) error {
	f := generator.Classify(err)

	details := map[string]string{}
	if f.Path != "" {
		details["Path"] = f.Path
	}
	if f.Line > 0 {
		details["Line"] = strconv.Itoa(f.Line)
	}
	if len(f.MissingVariables) > 0 {
		details["Missing variables"] = strings.Join(f.MissingVariables, ", ")
	}

	var suggestions []string
	if f.Guidance != "" {
		suggestions = []string{f.Guidance}
	}
	printed := a.printer.ErrorWithContext(f.Title, f.Message, details, suggestions)
	return &reportedError{err: fmt.Errorf("%w: %w", printed, err)}
}

// dirArg returns the optional workspace directory argument, made absolute
// against the working directory. Paths the validator rejects outright are
// passed through so the rejection is reported.
func dirArg(args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	if strings.HasPrefix(args[0], "~") {
		return args[0], nil
	}
	return filepath.Abs(args[0])
}
