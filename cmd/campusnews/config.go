package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/campusnews/internal/config"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `Validate and inspect campusnews configuration.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate configuration file",
		Long:  `Validate the configuration file and check for errors.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configPath
			if len(args) > 0 {
				path = args[0]
			}

			if err := config.LoadEnvOptional(opts.envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if errs := cfg.Validate(); len(errs) > 0 {
				fmt.Fprintf(out, "❌ %s: %d validation errors\n", path, len(errs))
				for _, e := range errs {
					fmt.Fprintf(out, "  - %v\n", e)
				}
				return errors.Join(errs...)
			}

			fmt.Fprintf(out, "✅ %s is valid\n", path)
			return nil
		},
	})

	return cmd
}
