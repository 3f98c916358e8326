package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tactic-tuner/internal/common"
)

const optimizerTemperature = 0.1

// TacticOptimizer implements Optimizer on top of any Completer.
type TacticOptimizer struct {
	completer Completer
	log       *slog.Logger
}

func NewOptimizer(c Completer, logger *slog.Logger) *TacticOptimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TacticOptimizer{completer: c, log: logger}
}

func (o *TacticOptimizer) Optimize(ctx context.Context, req OptimizerRequest) OptimizerResult {
	rid := uuid.New().String()
	ctx = common.WithRequestID(ctx, rid)
	start := time.Now()

	o.log.Info("llm.optimize.start",
		"req_id", rid,
		"run_id", common.RunIDFromContext(ctx),
		"family", req.Family,
		"mismatches", len(req.Mismatches),
		"recent_failures", len(req.RecentFailures),
	)

	content, err := o.completer.Complete(ctx, Request{
		Prompt:      BuildOptimizerPrompt(req),
		JSON:        true,
		Temperature: optimizerTemperature,
	})
	if err != nil {
		o.log.Error("llm.optimize.call_error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return OptimizerResult{Err: common.ExternalError("optimizer call", err)}
	}

	m, raw, err := decodeObject(content)
	if err != nil {
		o.log.Error("llm.optimize.decode_error", "req_id", rid, "error", err, "raw_bytes", len(content),
			"elapsed_ms", time.Since(start).Milliseconds())
		return OptimizerResult{Err: common.ExternalError("optimizer reply", err)}
	}

	if err := validateReply(optimizerSchema, raw); err != nil {
		cleaned, dropped, sErr := NormalizeOptimizerJSON(m, o.log)
		if sErr != nil {
			return OptimizerResult{Err: common.ExternalError("optimizer reply", sErr)}
		}
		if vErr := validateReply(optimizerSchema, cleaned); vErr != nil {
			o.log.Error("llm.optimize.schema_validation_failed",
				"req_id", rid, "error", vErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return OptimizerResult{Err: common.ExternalError("optimizer reply", vErr)}
		}
		o.log.Warn("llm.optimize.lenient_sanitize_applied", "req_id", rid, "dropped", dropped)
		raw = cleaned
	}

	var out struct {
		Tactic      string            `json:"tactic"`
		RuleUpdates map[string]string `json:"rule_updates"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return OptimizerResult{Err: common.ExternalError("optimizer reply", fmt.Errorf("unmarshal: %w", err))}
	}
	tactic := strings.TrimSpace(out.Tactic)
	if tactic == "" {
		return OptimizerResult{Err: common.ExternalError("optimizer reply", errors.New("empty tactic"))}
	}

	o.log.Info("llm.optimize.ok",
		"req_id", rid,
		"tactic_len", len(tactic),
		"rule_updates", len(out.RuleUpdates),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return OptimizerResult{Tactic: tactic, RuleUpdates: out.RuleUpdates}
}
