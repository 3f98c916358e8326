package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/tactic-tuner/constants"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm"
)

// Batch is every usable case of a family plus the rules that apply to all of them.
type Batch struct {
	Family  string
	Cases   []entity.Case
	Rules   entity.Rules
	Skipped []Skipped
	Stats   DirStats
}

// Loader turns a docs directory into a Batch. Architect structures ground
// truth that is not JSON; when nil such cases load with no expected values.
type Loader struct {
	Architect llm.Architect
	Logger    *slog.Logger
}

func NewLoader(architect llm.Architect, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{Architect: architect, Logger: logger}
}

// Load discovers the family's cases in dir and reads their ground truth.
// Batch rules are the union of per-case rules with rules_<family>.yaml on top.
// A specific per-case rule wins over another case's default equals.
func (l *Loader) Load(ctx context.Context, dir, family string) (Batch, error) {
	start := time.Now()
	candidates, skipped, stats, err := Discover(dir, family)
	if err != nil {
		return Batch{}, err
	}
	for _, s := range skipped {
		l.Logger.Warn("ingest.case.skipped", "family", family, "case_id", s.CaseID, "path", s.Path, "reason", s.Reason)
	}

	batch := Batch{Family: family, Rules: entity.Rules{}, Skipped: skipped, Stats: stats}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return Batch{}, err
		}
		cs, err := l.loadCase(ctx, c)
		if err != nil {
			l.Logger.Error("ingest.case.failed", "family", family, "case_id", c.CaseID, "err", err)
			batch.Skipped = append(batch.Skipped, Skipped{CaseID: c.CaseID, Path: c.TruthPath, Reason: err.Error()})
			continue
		}
		batch.Cases = append(batch.Cases, cs)
		mergeCaseRules(batch.Rules, cs.Rules)
	}

	overrides, err := LoadRuleOverrides(dir, family)
	if err != nil {
		return Batch{}, err
	}
	if len(overrides) > 0 {
		l.Logger.Info("ingest.rules.overrides", "family", family, "fields", len(overrides))
		batch.Rules = batch.Rules.Merge(overrides)
	}

	l.Logger.Info("ingest.load.ok",
		"family", family,
		"cases", len(batch.Cases),
		"skipped", len(batch.Skipped),
		"scanned", stats.Scanned,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return batch, nil
}

func (l *Loader) loadCase(ctx context.Context, c Candidate) (entity.Case, error) {
	b, err := os.ReadFile(c.TruthPath)
	if err != nil {
		return entity.Case{}, fmt.Errorf("read ground truth: %w", err)
	}
	raw := string(b)
	cs := entity.Case{
		ID:           c.CaseID,
		DocumentPath: c.DocumentPath,
		TruthPath:    c.TruthPath,
		Pages:        []string{c.DocumentPath},
		RawTruth:     raw,
	}

	if expected, rules, ok := ParseGroundTruth(raw); ok {
		cs.Expected, cs.Rules = expected, rules
		return cs, nil
	}

	if l.Architect == nil {
		l.Logger.Warn("ingest.truth.unstructured", "case_id", c.CaseID, "err", "no architect configured")
		cs.Expected, cs.Rules = entity.Expected{}, entity.Rules{}
		return cs, nil
	}
	l.Logger.Info("ingest.truth.architect", "case_id", c.CaseID)
	expected, rules, err := l.Architect.Structure(ctx, c.CaseID, raw)
	if err != nil {
		// kept with no ground truth so scoring reports it
		l.Logger.Error("ingest.truth.architect_failed", "case_id", c.CaseID, "err", err)
		expected, rules = entity.Expected{}, entity.Rules{}
	}
	cs.Expected, cs.Rules = expected, rules
	return cs, nil
}

func mergeCaseRules(dst, src entity.Rules) {
	for field, rule := range src {
		if cur, ok := dst[field]; ok && constants.ResolveRule(rule) == constants.RuleEquals && cur != "" {
			continue
		}
		dst[field] = rule
	}
}
