package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"yashubustudio/labelcheck/labelcheck"
)

func configCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config [PATH]",
		Short: "Write the effective configuration with defaults filled in",
		Long: `Loads --config (or the defaults when it does not exist) and writes it to
PATH, or back to --config when PATH is omitted. A .yaml or .yml PATH is
written as YAML.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := labelcheck.LoadConfig(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			path := root.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := labelcheck.SaveConfig(path, cfg); err != nil {
				return err
			}
			if path == "" {
				path = "config.json"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}
