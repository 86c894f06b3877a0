// Package main provides the specgen binary entry point.
// Specgen turns the narrative documents produced by reverse engineering into
// a project constitution, per-feature specifications and implementation
// plans under .semspec/.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/specgen/output/printer"
)

// Version information, set during build.
var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "specgen"

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd(printer.Default()).ExecuteContext(ctx)
	stop()
	if err != nil {
		// Reported errors were already printed by the printer.
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func rootCmd(p *printer.Printer) *cobra.Command {
	a := &app{printer: p}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Generate specifications from reverse-engineered documents",
		Long: `Specgen reads the functional specification and technical debt analysis
written by the reverse engineering stage and generates:

- a project constitution (.semspec/memory/constitution.md)
- one specification per feature (.semspec/specs/NNN-name/spec.md)
- an implementation plan for every unfinished feature

Rendering uses built-in templates that can be overridden per workspace.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML); skips the layered lookup")
	cmd.PersistentFlags().StringSliceVar(&a.roots, "root", nil, "Workspace root allowed for reads and writes (repeatable)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		generateCmd(a),
		watchCmd(a),
		statusCmd(a),
		initCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				p.Info("%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}
