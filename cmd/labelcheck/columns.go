package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"yashubustudio/labelcheck/labelcheck"
)

func columnsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "columns INPUT",
		Short: "Show the header of a CSV/TSV file and the detected columns",
		Long: `Prints the header of INPUT and the columns audit would use when no
--*-column flag is given. Detection uses input.columns from --config.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := labelcheck.LoadConfig(root.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			labelcheck.SetColumnCandidates(cfg.Input.Columns)
			meta, err := labelcheck.ReadInputFileMetadata(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(meta.Columns) == 0 {
				fmt.Fprintln(out, "plain text input: one example per line")
				return nil
			}
			for i, col := range meta.Columns {
				fmt.Fprintf(out, "#%d\t%s\n", i+1, col)
			}
			s := meta.Suggested
			for _, row := range [][2]string{
				{"id", s.IDColumn},
				{"title", s.TitleColumn},
				{"body", s.BodyColumn},
				{"text", s.TextColumn},
				{"label", s.LabelColumn},
			} {
				value := row[1]
				if value == "" {
					value = "-"
				}
				fmt.Fprintf(out, "%s-column: %s\n", row[0], value)
			}
			return nil
		},
	}
}
