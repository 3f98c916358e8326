package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/repository"
)

// app carries what every subcommand shares. It is filled in by the root
// command's PersistentPreRunE and torn down by PersistentPostRunE.
type app struct {
	configPath string
	logLevel   string

	cfg    *common.Config
	logger *slog.Logger
	closer io.Closer
	db     *repository.DB
	out    io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tuner",
		Short: "Closed-loop optimizer for document extraction tactics",
		Long: `tuner runs a vision model over a family of documents with known ground
truth, scores the extracted fields, and asks a model to rewrite the family's
tactic until the batch scores high enough or the attempt budget runs out.

The best tactic is written to prompts/MASTER_<family>.txt and every attempt is
recorded in the tactic memory so later runs resume where earlier ones stopped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			a.close()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./tuner.yaml when present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newScoreCmd(a))
	root.AddCommand(newHistoryCmd(a))
	root.AddCommand(newExportCmd(a))
	root.AddCommand(newWatchCmd(a))
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	a := &app{out: os.Stdout}
	root := newRootCmd(a)
	if err := root.ExecuteContext(ctx); err != nil {
		a.close()
		printError("%v\n", err)
		return 1
	}
	return 0
}

func (a *app) init() error {
	cfg, err := common.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, closer, err := common.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	a.cfg, a.logger, a.closer = cfg, logger, closer
	return nil
}

// memory opens the tactic memory store on first use.
func (a *app) memory(ctx context.Context) (repository.TacticMemory, error) {
	if a.db == nil {
		db, err := repository.Open(ctx, repository.ConfigFrom(a.cfg.Database), a.logger)
		if err != nil {
			return nil, err
		}
		if err := repository.HealthCheck(ctx, db, a.cfg.Database.DialTimeout, a.logger); err != nil {
			repository.Close(db, a.logger)
			return nil, err
		}
		if err := repository.Migrate(ctx, db.Driver, a.logger); err != nil {
			repository.Close(db, a.logger)
			return nil, err
		}
		a.db = db
	}
	return repository.NewTacticMemory(a.db.Driver, a.logger), nil
}

func (a *app) close() {
	if a.db != nil {
		repository.Close(a.db, a.logger)
		a.db = nil
	}
	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close log file: %v\n", err)
		}
		a.closer = nil
	}
}
