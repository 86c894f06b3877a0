package main

import (
	"github.com/spf13/cobra"

	"github.com/c360studio/specgen/config"
)

func initCmd(a *app) *cobra.Command {
	var seedTemplates, userConfig bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create the .semspec layout and workflow state",
		Long: `Init creates the .semspec directories and workflow state of a workspace.
With --templates it also copies the built-in templates into the template
directory so they can be customised, and with --user-config it writes the
default configuration to ~/.config/specgen/config.yaml. Existing files are
never overwritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dirArg(args)
			if err != nil {
				return err
			}
			if userConfig {
				path, err := config.NewLoader(a.logger).EnsureUserConfig()
				if err != nil {
					return a.configError(err)
				}
				a.printer.Info("User config: %s\n", path)
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			g, err := a.newGenerator(cfg)
			if err != nil {
				return err
			}

			res, err := g.Init(dir, seedTemplates)
			if err != nil {
				return a.fail(err)
			}

			a.printer.Success("Initialized %s\n", res.Root)
			for _, path := range res.Templates {
				a.printer.Info("  %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&seedTemplates, "templates", false, "Copy the built-in templates for customisation")
	cmd.Flags().BoolVar(&userConfig, "user-config", false, "Write the default user configuration if missing")
	return cmd
}
