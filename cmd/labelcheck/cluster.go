package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"yashubustudio/labelcheck/labelcheck"
)

func clusterCmd(root *rootOptions) *cobra.Command {
	var textColumn string
	cmd := &cobra.Command{
		Use:   "cluster INPUT",
		Short: "Cluster texts and print each one with its cluster id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(root.logLevel)
			cfg, err := labelcheck.LoadConfig(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			labelcheck.SetColumnCandidates(cfg.Input.Columns)
			examples, err := labelcheck.ParseExampleFile(strings.TrimSpace(args[0]), labelcheck.InputParseOptions{
				TextColumn:     textColumn,
				IDPrefix:       cfg.Input.IDPrefix,
				IDScheme:       cfg.Input.IDScheme,
				LabelSeparator: cfg.Input.LabelSeparator,
			})
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			store, err := labelcheck.NewStore(examples)
			if err != nil {
				return err
			}
			svc, err := newService(cfg, logger, nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			clustered, err := svc.ClusterOnly(ctx, store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, ex := range clustered.Examples() {
				fmt.Fprintf(out, "%s\t%s\t%s\n", ex.ID, clusterID(ex), strings.ReplaceAll(ex.Text, "\n", " "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&textColumn, "text-column", "", "Column name or #index for the text column")
	return cmd
}

func clusterID(ex labelcheck.Example) string {
	if len(ex.ClusterLabels) == 0 {
		return labelcheck.NoiseCluster
	}
	return ex.ClusterLabels[0].ID
}
