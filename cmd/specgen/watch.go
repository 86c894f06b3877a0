package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/specgen/generator"
	"github.com/c360studio/specgen/workflow"
)

func watchCmd(a *app) *cobra.Command {
	var (
		route string
		prune bool
	)

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Regenerate whenever an input document or template changes",
		Long: `Watch runs generate once, then again each time the primary input, the
debt input or a template override changes content. Failed runs are reported
and the watcher keeps going. Stop it with Ctrl-C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dirArg(args)
			if err != nil {
				return err
			}
			req := generator.Request{Dir: dir, Prune: prune}
			if route != "" {
				if req.Route, err = workflow.ParseRoute(route); err != nil {
					return err
				}
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			g, err := a.newGenerator(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if res, err := g.Run(ctx, req); err != nil {
				a.fail(err)
			} else {
				a.printResult(res)
			}

			w, err := g.NewWatcher(req)
			if err != nil {
				return a.fail(err)
			}
			if err := w.Start(ctx); err != nil {
				return a.fail(err)
			}
			defer w.Stop()

			a.printer.Step("Watching for changes (Ctrl-C to stop)\n")
			for outcome := range w.Outcomes() {
				a.printer.Step("Changed: %s\n", strings.Join(outcome.Trigger, ", "))
				if outcome.Err != nil {
					a.fail(outcome.Err)
					continue
				}
				a.printResult(outcome.Result)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&route, "route", "", "Generation route: agnostic or prescriptive")
	cmd.Flags().BoolVar(&prune, "prune", false, "Remove generated documents that are no longer produced")
	return cmd
}
