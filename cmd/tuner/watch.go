package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tactic-tuner/internal/async"
	"github.com/joseph-ayodele/tactic-tuner/internal/ingest"
)

func newWatchCmd(a *app) *cobra.Command {
	var initial bool
	cmd := &cobra.Command{
		Use:   "watch <family> [family...]",
		Short: "Re-run a family whenever new ground truth for it lands in the docs directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.tuningService(ctx)
			if err != nil {
				return err
			}

			q := async.NewRunQueue(svc, a.logger,
				async.WithWorkers(1),
				async.WithQueueSize(a.cfg.Tuner.QueueSize),
				async.WithOnDone(func(o async.Outcome) {
					if o.Err != nil {
						printError("%s: %v\n", o.Job.Family, o.Err)
						return
					}
					printResult(a.out, o.Result, a.cfg.Tuner.TargetScore)
				}),
			)

			triggers, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
				Dir:      a.cfg.Paths.DocsDir,
				Families: args,
				Debounce: a.cfg.Tuner.WatchDebounce,
			}, a.logger)
			if err != nil {
				_ = q.Shutdown(ctx)
				return err
			}
			printStatus(a.out, "•", "watching "+a.cfg.Paths.DocsDir+" (Ctrl+C to stop)", color.FgCyan)

			if initial {
				for _, f := range args {
					if _, err := q.Enqueue(ctx, async.Job{Family: f, Reason: "initial"}); err != nil {
						a.logger.Warn("watch.enqueue", "family", f, "err", err)
					}
				}
			}

			for triggers != nil || errs != nil {
				select {
				case t, ok := <-triggers:
					if !ok {
						triggers = nil
						continue
					}
					// a family that is running now is rerun once it finishes
					queued, err := q.Enqueue(ctx, async.Job{Family: t.Family, Reason: "watch"})
					switch {
					case err != nil:
						a.logger.Warn("watch.enqueue", "family", t.Family, "err", err)
					case !queued:
						a.logger.Debug("watch.trigger.coalesced", "family", t.Family, "paths", len(t.Paths))
					}
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					printError("watch: %v\n", err)
				}
			}
			// ctx is done: running jobs are canceled rather than drained
			_ = q.Shutdown(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVar(&initial, "initial", false, "run every family once before waiting for changes")
	return cmd
}
