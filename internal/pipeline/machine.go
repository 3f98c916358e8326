package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/tactic-tuner/constants"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm"
	"github.com/joseph-ayodele/tactic-tuner/internal/repository"
)

// Config bounds one optimization run.
type Config struct {
	MaxAttempts int
	TargetScore float64
	Workers     int
	CallTimeout time.Duration
}

// ArtifactWriter persists the master artifact of a family.
type ArtifactWriter interface {
	Save(family, tactic, baseInstructions string) (string, error)
}

// Deps are the collaborators the stages call out to. Memory and Artifacts
// may be nil, in which case persistence is skipped.
type Deps struct {
	Oracle    llm.Oracle
	Optimizer llm.Optimizer
	Memory    repository.TacticMemory
	Artifacts ArtifactWriter
}

// Machine drives a State through EXTRACT, VALIDATE, DECIDE, OPTIMIZE until
// TERMINAL. A Machine holds no per-run state and may run several families
// concurrently.
type Machine struct {
	Logger *slog.Logger
	cfg    Config
	deps   Deps

	// OnTransition, when set, receives a copy of every new snapshot.
	OnTransition func(State)
}

type stage func(m *Machine, ctx context.Context, s State) State

var stages = map[constants.State]stage{
	constants.StateExtract:  (*Machine).extract,
	constants.StateValidate: (*Machine).validate,
	constants.StateDecide:   (*Machine).decide,
	constants.StateOptimize: (*Machine).optimize,
}

func NewMachine(cfg Config, deps Deps, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = constants.DefaultMaxAttempts
	}
	if cfg.TargetScore <= 0 {
		cfg.TargetScore = constants.DefaultTargetScore
	}
	if cfg.Workers <= 0 {
		cfg.Workers = constants.DefaultWorkers
	}
	return &Machine{Logger: logger, cfg: cfg, deps: deps}
}

// Step performs exactly one transition. TERMINAL is absorbing.
func (m *Machine) Step(ctx context.Context, s State) State {
	if s.Phase == constants.StateTerminal {
		return s
	}
	fn, ok := stages[s.Phase]
	if !ok {
		m.Logger.Error("pipeline.step.unknown_state", "run_id", s.RunID, "state", s.Phase)
		next := s
		next.Final = true
		next.Phase = constants.StateTerminal
		return next
	}

	next := fn(m, ctx, s)
	m.Logger.Debug("pipeline.step",
		"run_id", s.RunID,
		"family", s.Family,
		"from", s.Phase,
		"to", next.Phase,
		"attempts", next.Attempts,
	)
	if m.OnTransition != nil {
		m.OnTransition(next.Clone())
	}
	return next
}

// Run steps s until TERMINAL or until ctx is done, in which case the last
// snapshot and its result are returned with ctx.Err().
func (m *Machine) Run(ctx context.Context, s State) (entity.BatchResult, State, error) {
	start := time.Now()
	m.Logger.Info("pipeline.run.start",
		"run_id", s.RunID,
		"family", s.Family,
		"cases", len(s.Cases),
		"resumed", s.Tactic != "",
	)
	for s.Phase != constants.StateTerminal {
		if err := ctx.Err(); err != nil {
			m.Logger.Warn("pipeline.run.canceled",
				"run_id", s.RunID,
				"state", s.Phase,
				"attempts", s.Attempts,
				"err", err,
			)
			return s.Result(), s, err
		}
		s = m.Step(ctx, s)
	}
	m.Logger.Info("pipeline.run.done",
		"run_id", s.RunID,
		"family", s.Family,
		"attempts", s.Attempts,
		"best_score", s.BestScore,
		"last_score", s.AvgScore,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return s.Result(), s, nil
}
