package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tactic-tuner/internal/async"
	"github.com/joseph-ayodele/tactic-tuner/internal/export"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		asJSON   bool
		xlsxDir  string
		parallel int
	)
	cmd := &cobra.Command{
		Use:   "run <family> [family...]",
		Short: "Optimize the tactic of one or more document families",
		Long: `Run the extract, validate, optimize loop for each family until the batch
average reaches the target score or the attempt budget is spent.

Cases are read from the docs directory: expected_<case>.txt next to a
<case>.png/.jpg whose case id contains the family name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.tuningService(ctx)
			if err != nil {
				return err
			}

			var (
				mu       sync.Mutex
				outcomes []async.Outcome
			)
			q := async.NewRunQueue(svc, a.logger,
				async.WithWorkers(parallel),
				async.WithQueueSize(a.cfg.Tuner.QueueSize),
				async.WithOnDone(func(o async.Outcome) {
					mu.Lock()
					outcomes = append(outcomes, o)
					mu.Unlock()
				}),
			)
			for _, family := range args {
				if _, err := q.Enqueue(ctx, async.Job{Family: family, Reason: "cli"}); err != nil {
					_ = q.Shutdown(ctx)
					return err
				}
			}
			if err := q.Shutdown(ctx); err != nil {
				return err
			}

			slices.SortFunc(outcomes, func(x, y async.Outcome) int { return strings.Compare(x.Job.Family, y.Job.Family) })
			exp := export.NewService(nil, a.logger)
			failed := 0
			for _, o := range outcomes {
				if o.Err != nil {
					failed++
					printError("%s: %v\n", o.Job.Family, o.Err)
					continue
				}
				if asJSON {
					if err := writeJSON(a.out, o.Result); err != nil {
						return err
					}
				} else {
					printResult(a.out, o.Result, a.cfg.Tuner.TargetScore)
				}
				if xlsxDir != "" {
					b, err := exp.ExportBatchXLSX(o.Result)
					if err != nil {
						return err
					}
					path := filepath.Join(xlsxDir, "batch_"+o.Job.Family+".xlsx")
					if err := os.WriteFile(path, b, 0o644); err != nil {
						return fmt.Errorf("write %s: %w", path, err)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d run(s) failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print each batch result as JSON")
	cmd.Flags().StringVar(&xlsxDir, "xlsx-dir", "", "also write batch_<family>.xlsx into this directory")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "families optimized concurrently")
	return cmd
}
