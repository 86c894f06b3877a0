package main

import (
	"encoding/json"
	"sort"

	"github.com/spf13/cobra"

	"github.com/c360studio/specgen/generator"
	"github.com/c360studio/specgen/workflow"
)

func statusCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status [dir]",
		Short: "Show the inputs and generation state of a workspace",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dirArg(args)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			g, err := a.newGenerator(cfg)
			if err != nil {
				return err
			}

			report, err := g.Status(dir)
			if err != nil {
				return a.fail(err)
			}
			if asJSON {
				enc := json.NewEncoder(a.printer.Out())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			a.printStatus(report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func (a *app) printStatus(report *generator.StatusReport) {
	p := a.printer
	p.Step("Workspace %s\n", report.Root)

	printInput := func(label string, in generator.InputStatus) {
		if in.Exists {
			p.Success("%s: %s\n", label, in.Path)
		} else {
			p.Warning("%s: %s (missing)\n", label, in.Path)
		}
	}
	printInput("Primary input", report.Primary)
	if report.Debt != nil {
		printInput("Debt input", *report.Debt)
	}

	if report.State == nil {
		p.Info("Not initialized. Run specgen init or specgen generate.\n")
		return
	}

	state := report.State
	p.Info("Current step: %s\n", state.CurrentStep)
	if route, ok := state.Route(); ok {
		p.Info("Route: %s\n", route)
	}
	if detail, ok := state.Steps[workflow.StepGenerateSpecs]; ok {
		p.Info("Last generation: %s (run %s)\n", detail.CompletedAt.Format("2006-01-02 15:04:05 MST"), detail.RunID)
		keys := make([]string, 0, len(detail.Summary))
		for k := range detail.Summary {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			p.Muted("  %s: %v\n", k, detail.Summary[k])
		}
	} else {
		p.Info("Specifications have not been generated yet.\n")
	}

	p.Info("Feature directories: %d\n", len(report.FeatureDirs))
	for _, dir := range report.FeatureDirs {
		p.Info("  %s\n", dir)
	}
}
