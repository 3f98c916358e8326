package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		width  int
	)
	cmd := &cobra.Command{
		Use:   "history [family]",
		Short: "Show recorded tactics; with no family, list known families",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			memory, err := a.memory(ctx)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				families, err := memory.Families(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(a.out, families)
				}
				if len(families) == 0 {
					fmt.Fprintln(a.out, "No recorded families yet. Run 'tuner run <family>' to start.")
				}
				for _, f := range families {
					fmt.Fprintln(a.out, f)
				}
				return nil
			}

			successes, failures, err := memory.History(ctx, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(a.out, map[string]any{"successes": successes, "failures": failures})
			}

			bold := color.New(color.Bold)
			bold.Fprintf(a.out, "Successes (%d)\n", len(successes))
			for _, s := range successes {
				fmt.Fprintf(a.out, "  #%-4d %s  %s  %s\n", s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"),
					scoreColor(s.Score, a.cfg.Tuner.TargetScore).Sprintf("%6.1f%%", s.Score), oneLine(s.Tactic, width))
			}
			bold.Fprintf(a.out, "Failures (%d)\n", len(failures))
			for _, f := range failures {
				fmt.Fprintf(a.out, "  #%-4d %s  %s\n", f.ID, f.CreatedAt.Local().Format("2006-01-02 15:04"), oneLine(f.Tactic, width))
				for _, e := range f.Errors {
					fmt.Fprintf(a.out, "         %s %s\n", color.RedString("✗"), oneLine(e, width))
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().IntVar(&width, "width", 100, "cut tactics to this many characters (0 for no limit)")
	return cmd
}
