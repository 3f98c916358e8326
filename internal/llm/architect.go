package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tactic-tuner/constants"
	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

// GroundTruthArchitect implements Architect on top of any Completer.
type GroundTruthArchitect struct {
	completer Completer
	log       *slog.Logger
}

func NewArchitect(c Completer, logger *slog.Logger) *GroundTruthArchitect {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroundTruthArchitect{completer: c, log: logger}
}

func (a *GroundTruthArchitect) Structure(ctx context.Context, caseID, raw string) (entity.Expected, entity.Rules, error) {
	rid := uuid.New().String()
	ctx = common.WithRequestID(ctx, rid)
	start := time.Now()
	a.log.Info("llm.architect.start", "req_id", rid, "case_id", caseID, "raw_len", len(raw))

	content, err := a.completer.Complete(ctx, Request{Prompt: BuildArchitectPrompt(raw), JSON: true})
	if err != nil {
		a.log.Error("llm.architect.call_error", "req_id", rid, "case_id", caseID, "error", err)
		return nil, nil, common.ExternalError("architect call", err)
	}
	_, obj, err := decodeObject(content)
	if err != nil {
		return nil, nil, common.ExternalError("architect reply", err)
	}
	if err := validateReply(architectSchema, obj); err != nil {
		a.log.Error("llm.architect.schema_validation_failed", "req_id", rid, "case_id", caseID, "error", err)
		return nil, nil, common.ExternalError("architect reply", err)
	}

	var out struct {
		ExpectedData entity.Expected `json:"expected_data"`
		Rules        entity.Rules    `json:"rules"`
	}
	if err := json.Unmarshal(obj, &out); err != nil {
		return nil, nil, common.ExternalError("architect reply", fmt.Errorf("unmarshal: %w", err))
	}

	expected := make(entity.Expected, len(out.ExpectedData))
	rules := make(entity.Rules, len(out.ExpectedData))
	for id, v := range out.ExpectedData {
		id = strings.Trim(strings.TrimSpace(id), `"'`)
		if v.Status == "" {
			v.Status = constants.DefaultExpectedStatus
		}
		expected[id] = v
		rules[id] = out.Rules.RuleFor(id)
	}

	a.log.Info("llm.architect.ok", "req_id", rid, "case_id", caseID, "fields", len(expected),
		"elapsed_ms", time.Since(start).Milliseconds())
	return expected, rules, nil
}
