package tuning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/tactic-tuner/constants"
	"github.com/joseph-ayodele/tactic-tuner/internal/artifact"
	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
	"github.com/joseph-ayodele/tactic-tuner/internal/ingest"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm"
	"github.com/joseph-ayodele/tactic-tuner/internal/pipeline"
	"github.com/joseph-ayodele/tactic-tuner/internal/repository"
)

// Deps are the collaborators a Service wires together. Seeder generates base
// instructions for a family that has no master artifact yet.
type Deps struct {
	Loader    *ingest.Loader
	Artifacts *artifact.Store
	Memory    repository.TacticMemory
	Machine   *pipeline.Machine
	Seeder    llm.Completer
}

// Service handles family optimization runs.
type Service struct {
	docsDir string
	deps    Deps
	logger  *slog.Logger
}

// NewService creates a tuning service reading cases from docsDir.
func NewService(docsDir string, deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docsDir: docsDir, deps: deps, logger: logger}
}

// Prepared is everything a run starts from.
type Prepared struct {
	RunID string
	State pipeline.State
	Batch ingest.Batch
}

// Prepare loads the family batch, its base instructions and the tactic to
// resume from: the master artifact's, else the best one in memory.
func (s *Service) Prepare(ctx context.Context, family string) (Prepared, error) {
	family = strings.TrimSpace(family)
	validator := common.NewValidator()
	validator.Field("family", family, common.Required)
	if err := common.ValidateAndReturnError(validator); err != nil {
		return Prepared{}, err
	}

	ctx, runID := common.NewRunContext(ctx, family)
	batch, err := s.deps.Loader.Load(ctx, s.docsDir, family)
	if err != nil {
		return Prepared{}, common.InvalidInputError(fmt.Sprintf("load cases for %s: %v", family, err))
	}
	if len(batch.Cases) == 0 {
		s.logger.Error("tuning.prepare.no_cases", "family", family, "docs_dir", s.docsDir, "skipped", len(batch.Skipped))
		return Prepared{}, common.NotFoundError(fmt.Sprintf("no usable cases for family %q in %s", family, s.docsDir))
	}

	base, tactic, err := s.instructions(ctx, family, batch.Cases)
	if err != nil {
		return Prepared{}, err
	}
	if tactic == "" && s.deps.Memory != nil {
		best, ok, err := s.deps.Memory.BestTactic(ctx, family)
		switch {
		case err != nil:
			s.logger.Warn("memory.best_tactic", "family", family, "err", err)
		case ok:
			s.logger.Info("tuning.prepare.resumed_from_memory", "run_id", runID, "family", family)
			tactic = best
		}
	}

	st := pipeline.NewState(runID, family, batch.Cases, base, tactic, batch.Rules)
	st.Guide = s.deps.Artifacts.Guide()
	return Prepared{RunID: runID, State: st, Batch: batch}, nil
}

// RunFamily optimizes the tactic of family until the target score or the
// attempt cap is reached.
func (s *Service) RunFamily(ctx context.Context, family string) (entity.BatchResult, error) {
	start := time.Now()
	p, err := s.Prepare(ctx, family)
	if err != nil {
		return entity.BatchResult{}, err
	}
	ctx = common.WithRunID(common.WithFamily(ctx, family), p.RunID)

	res, _, err := s.deps.Machine.Run(ctx, p.State)
	if err != nil {
		return res, err
	}
	s.logger.Info("tuning.run.ok",
		"run_id", p.RunID,
		"family", family,
		"best_score", res.BestAvgScore,
		"attempts", res.Attempts,
		"artifact", res.ArtifactPath,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// Score runs a single extract and validate pass with the current tactic.
// Nothing is persisted.
func (s *Service) Score(ctx context.Context, family string) (entity.BatchResult, []entity.Mismatch, error) {
	p, err := s.Prepare(ctx, family)
	if err != nil {
		return entity.BatchResult{}, nil, err
	}
	st := p.State
	for st.Phase != constants.StateDecide {
		if err := ctx.Err(); err != nil {
			return st.Result(), st.Mismatches, err
		}
		st = s.deps.Machine.Step(ctx, st)
	}
	return st.Result(), st.Mismatches, nil
}

// History returns the recorded successes and failures of family.
func (s *Service) History(ctx context.Context, family string) ([]entity.SuccessRecord, []entity.FailureRecord, error) {
	if s.deps.Memory == nil {
		return nil, nil, common.InvalidInputError("tactic memory is not configured")
	}
	return s.deps.Memory.History(ctx, family)
}

// instructions returns the base instructions and stored tactic of family,
// generating and saving seed instructions when no artifact exists.
func (s *Service) instructions(ctx context.Context, family string, cases []entity.Case) (string, string, error) {
	m, ok, err := s.deps.Artifacts.Load(family)
	if err != nil {
		return "", "", err
	}
	if ok {
		return m.BaseInstructions, m.Tactic, nil
	}

	if s.deps.Seeder == nil {
		return "", "", common.InvalidInputError(fmt.Sprintf("no master artifact for %s and no model to seed one", family))
	}
	seedCase, ok := firstSeedable(cases)
	if !ok {
		return "", "", common.InvalidInputError(fmt.Sprintf("no case of %s has ground truth to seed instructions from", family))
	}
	img, err := llm.LoadImage(seedCase.Pages[0])
	if err != nil {
		return "", "", common.InvalidInputError(fmt.Sprintf("load seed page: %v", err))
	}

	s.logger.Info("tuning.seed.start", "family", family, "case_id", seedCase.ID)
	base, err := llm.SeedInstructions(ctx, s.deps.Seeder, img, seedCase.Expected, s.logger)
	if err != nil {
		return "", "", err
	}
	if _, err := s.deps.Artifacts.SaveSeed(family, base); err != nil {
		// the run can still proceed from the in-memory seed
		s.logger.Error("tuning.seed.save_failed", "family", family, "err", err)
	}
	return base, "", nil
}

func firstSeedable(cases []entity.Case) (entity.Case, bool) {
	for _, c := range cases {
		if len(c.Expected) > 0 && len(c.Pages) > 0 {
			return c, true
		}
	}
	return entity.Case{}, false
}
