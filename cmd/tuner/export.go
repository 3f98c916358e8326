package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tactic-tuner/internal/export"
)

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <family>",
		Short: "Write the tactic history of a family to an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			memory, err := a.memory(ctx)
			if err != nil {
				return err
			}
			if out == "" {
				out = "history_" + args[0] + ".xlsx"
			}
			b, err := export.NewService(memory, a.logger).ExportHistoryXLSX(ctx, args[0])
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			printStatus(a.out, "✓", "wrote "+out, color.FgGreen)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default history_<family>.xlsx)")
	return cmd
}
