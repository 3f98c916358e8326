package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tactic-tuner/constants"
)

func newScoreCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "score <family>",
		Short: "Score the current tactic of a family once, without optimizing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.tuningService(cmd.Context())
			if err != nil {
				return err
			}
			res, mismatches, err := svc.Score(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.out, map[string]any{"result": res, "mismatches": mismatches})
			}

			target := a.cfg.Tuner.TargetScore
			printStatus(a.out, "•", fmt.Sprintf("%s: %s", res.Family,
				scoreColor(res.LastAvgScore, target).Sprintf("%.1f%%", res.LastAvgScore)), color.FgCyan)
			for _, c := range res.BatchQueue {
				fmt.Fprintf(a.out, "    %-32s %s\n", c.CaseID, scoreColor(c.Score, target).Sprintf("%6.1f%%", c.Score))
			}
			printMismatches(a.out, mismatches, limit)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	cmd.Flags().IntVar(&limit, "limit", constants.MismatchPromptLimit, "mismatches to show (0 for all)")
	return cmd
}
