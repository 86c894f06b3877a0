package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/specgen/generator"
	"github.com/c360studio/specgen/workflow"
)

func generateCmd(a *app) *cobra.Command {
	var (
		route       string
		dryRun      bool
		prune       bool
		metricsFile string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "generate [dir]",
		Short: "Generate the constitution, feature specs and plans",
		Long: `Generate reads the reverse-engineered documents of a workspace and writes
the constitution, one spec per feature and a plan for every unfinished
feature under .semspec/. Documents whose content is unchanged are not
rewritten. Nothing is written when any step fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dirArg(args)
			if err != nil {
				return err
			}

			req := generator.Request{Dir: dir, DryRun: dryRun, Prune: prune}
			if route != "" {
				r, err := workflow.ParseRoute(route)
				if err != nil {
					return err
				}
				req.Route = r
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if metricsFile != "" {
				cfg.Metrics.Textfile = metricsFile
			}
			g, err := a.newGenerator(cfg)
			if err != nil {
				return err
			}

			res, err := g.Run(cmd.Context(), req)
			if err != nil {
				return a.fail(err)
			}

			if asJSON {
				enc := json.NewEncoder(a.printer.Out())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			a.printResult(res)
			return nil
		},
	}

	cmd.Flags().StringVar(&route, "route", "", "Generation route: agnostic or prescriptive (default: recorded route, then config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show diffs against the existing documents without writing")
	cmd.Flags().BoolVar(&prune, "prune", false, "Remove generated documents that are no longer produced")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run result as JSON")
	return cmd
}

func (a *app) printResult(res *generator.Result) {
	p := a.printer

	if res.DryRun {
		p.Step("Dry run in %s (route %s)\n", res.Root, res.Route)
	} else {
		p.Step("Generated in %s (route %s)\n", res.Root, res.Route)
	}

	changed := 0
	for _, art := range res.Artifacts {
		if !art.Changed {
			p.Muted("  %s (unchanged)\n", art.Path)
			continue
		}
		changed++
		if res.DryRun {
			p.Info("  %s\n", art.Path)
		} else {
			p.Success("%s\n", art.Path)
		}
	}

	if res.DryRun {
		paths := make([]string, 0, len(res.Diffs))
		for path := range res.Diffs {
			paths = append(paths, path)
		}
		sort.Strings(paths)
		for _, path := range paths {
			p.Info("\n")
			p.Diff(res.Diffs[path])
		}
	}

	for _, path := range res.Pruned {
		if res.DryRun {
			p.Info("  would remove %s\n", path)
		} else {
			p.Info("  removed %s\n", path)
		}
	}
	for _, w := range res.Warnings {
		p.Warning("%s\n", w)
	}

	var parts []string
	for _, st := range []workflow.FeatureStatus{workflow.StatusComplete, workflow.StatusPartial, workflow.StatusMissing} {
		if n := res.StatusCounts[st]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, st))
		}
	}
	summary := strings.Join(parts, ", ")

	if res.DryRun {
		p.Info("\n%d of %d documents would change for %d features (%s), %d plans\n",
			changed, len(res.Artifacts), len(res.Features), summary, res.Plans)
		return
	}
	p.Success("Wrote %d of %d documents for %d features (%s), %d plans\n",
		res.Written, len(res.Artifacts), len(res.Features), summary, res.Plans)
}
