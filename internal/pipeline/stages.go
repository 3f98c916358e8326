package pipeline

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/tactic-tuner/constants"
	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm"
	"github.com/joseph-ayodele/tactic-tuner/internal/scoring"
)

// extract calls the oracle for every case with the current tactic.
func (m *Machine) extract(ctx context.Context, s State) State {
	start := time.Now()
	attempt := s.Attempts + 1
	m.Logger.Info("pipeline.extract.start",
		"run_id", s.RunID,
		"family", s.Family,
		"attempt", attempt,
		"cases", len(s.Cases),
	)

	// indexed by case position so workers never share a map
	results := make([]llm.OracleResult, len(s.Cases))
	var g errgroup.Group
	g.SetLimit(m.cfg.Workers)
	for i, c := range s.Cases {
		g.Go(func() error {
			results[i] = m.extractCase(ctx, s, c)
			return nil
		})
	}
	_ = g.Wait()

	extractions := make(map[string]entity.Extraction, len(s.Cases))
	failed := 0
	for i, c := range s.Cases {
		res := results[i]
		if !res.Ok() {
			failed++
		}
		if res.Fields == nil {
			res.Fields = entity.Extraction{}
		}
		extractions[c.ID] = res.Fields
	}

	next := s
	next.Extractions = extractions
	next.Attempts = attempt
	next.Phase = constants.StateValidate
	m.Logger.Info("pipeline.extract.done",
		"run_id", s.RunID,
		"attempt", attempt,
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return next
}

func (m *Machine) extractCase(ctx context.Context, s State, c entity.Case) llm.OracleResult {
	images, err := llm.LoadImages(c.Pages)
	if err != nil {
		m.Logger.Error("pipeline.extract.load_failed", "run_id", s.RunID, "case_id", c.ID, "err", err)
		return llm.OracleResult{Fields: entity.Extraction{}, Err: common.InvalidInputError(err.Error())}
	}

	callCtx, cancel := common.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()
	res := m.deps.Oracle.Extract(callCtx, llm.OracleRequest{
		CaseID:           c.ID,
		Tactic:           s.Tactic,
		BaseInstructions: s.BaseInstructions,
		Images:           images,
		FieldIDs:         c.Expected.FieldIDs(),
	})
	if !res.Ok() {
		m.Logger.Warn("pipeline.extract.case_failed", "run_id", s.RunID, "case_id", c.ID, "err", res.Err)
	}
	return res
}

// validate scores the batch and promotes the current tactic when it ties or
// beats the best score so far.
func (m *Machine) validate(_ context.Context, s State) State {
	docs := make([]scoring.DocumentResult, 0, len(s.Cases))
	for _, c := range s.Cases {
		docs = append(docs, scoring.DocumentResult{
			DocumentID: c.ID,
			Extraction: s.Extractions[c.ID],
			Expected:   c.Expected,
		})
	}
	mismatches, avg, perDoc := scoring.ValidateBatch(docs, s.Rules)

	next := s
	next.Mismatches = mismatches
	next.Scores = perDoc
	next.AvgScore = avg
	next.Rounds = append(slices.Clone(s.Rounds), Round{Attempt: s.Attempts, Score: avg, Tactic: s.Tactic})
	if avg >= s.BestScore {
		next.BestScore = avg
		next.BestTactic = s.Tactic
	}
	next.Phase = constants.StateDecide

	m.Logger.Info("pipeline.validate.scored",
		"run_id", s.RunID,
		"attempt", s.Attempts,
		"avg_score", avg,
		"best_score", next.BestScore,
		"mismatches", len(mismatches),
	)
	return next
}

// decide ends the run on target score or attempt cap, persisting the best
// tactic; otherwise it records the failed tactic and moves on to OPTIMIZE.
func (m *Machine) decide(ctx context.Context, s State) State {
	next := s
	if s.AvgScore >= m.cfg.TargetScore || s.Attempts >= m.cfg.MaxAttempts {
		next.Final = true
		next.Phase = constants.StateTerminal
		m.Logger.Info("pipeline.decide.terminal",
			"run_id", s.RunID,
			"family", s.Family,
			"avg_score", s.AvgScore,
			"best_score", s.BestScore,
			"attempts", s.Attempts,
		)
		if s.BestTactic == "" {
			return next
		}
		if m.deps.Artifacts != nil {
			path, err := m.deps.Artifacts.Save(s.Family, s.BestTactic, s.BaseInstructions)
			if err != nil {
				m.Logger.Error("pipeline.decide.artifact_failed", "run_id", s.RunID, "family", s.Family, "err", err)
				next.ArtifactErr = err.Error()
			} else {
				next.ArtifactPath = path
			}
		}
		if s.BestScore > 0 && m.deps.Memory != nil {
			if err := m.deps.Memory.RecordSuccess(ctx, s.Family, s.BestTactic, s.BestScore); err != nil {
				m.Logger.Error("memory.record_success", "run_id", s.RunID, "family", s.Family, "err", err)
				next.MemoryErrors++
			}
		}
		return next
	}

	if m.deps.Memory != nil {
		sample := entity.FormatMismatches(s.Mismatches, constants.FailureSampleSize)
		if err := m.deps.Memory.RecordFailure(ctx, s.Family, s.Tactic, sample); err != nil {
			m.Logger.Error("memory.record_failure", "run_id", s.RunID, "family", s.Family, "err", err)
			next.MemoryErrors++
		}
	}
	next.Phase = constants.StateOptimize
	return next
}

// optimize asks for a corrective tactic. A failed call keeps the current
// tactic and rules; the next round retries with them.
func (m *Machine) optimize(ctx context.Context, s State) State {
	start := time.Now()
	next := s
	next.Phase = constants.StateExtract

	var recent []string
	if m.deps.Memory != nil {
		var err error
		recent, err = m.deps.Memory.RecentFailures(ctx, s.Family, constants.RecentFailureLimit)
		if err != nil {
			m.Logger.Warn("memory.recent_failures", "run_id", s.RunID, "family", s.Family, "err", err)
			recent = nil
		}
	}

	callCtx, cancel := common.WithTimeout(ctx, m.cfg.CallTimeout)
	defer cancel()
	res := m.deps.Optimizer.Optimize(callCtx, llm.OptimizerRequest{
		Family:           s.Family,
		BaseInstructions: s.BaseInstructions,
		CurrentTactic:    s.Tactic,
		FieldTags:        llm.FieldTags(s.FieldIDs()),
		Mismatches:       entity.FormatMismatches(s.Mismatches, constants.MismatchPromptLimit),
		RecentFailures:   recent,
		Rules:            s.Rules,
		Guide:            s.Guide,
	})
	if !res.Ok() {
		m.Logger.Warn("pipeline.optimize.kept_previous", "run_id", s.RunID, "family", s.Family, "err", res.Err)
		next.OptimizerErrors++
		return next
	}

	for field, rule := range res.RuleUpdates {
		if _, known := constants.Canonicalize(rule); !known {
			m.Logger.Warn("pipeline.optimize.unknown_rule", "run_id", s.RunID, "field", field, "rule", rule)
		}
	}
	tactic, redacted := llm.RedactTactic(res.Tactic, s.Cases)
	if len(redacted) > 0 {
		m.Logger.Warn("pipeline.optimize.redacted", "run_id", s.RunID, "family", s.Family, "fields", redacted)
	}
	next.Tactic = tactic
	next.Rules = s.Rules.Merge(res.RuleUpdates)

	m.Logger.Info("pipeline.optimize.ok",
		"run_id", s.RunID,
		"attempt", s.Attempts,
		"rule_updates", len(res.RuleUpdates),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return next
}
