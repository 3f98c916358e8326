package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

// VisionOracle implements Oracle on top of any Completer.
type VisionOracle struct {
	completer Completer
	log       *slog.Logger
}

func NewOracle(c Completer, logger *slog.Logger) *VisionOracle {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisionOracle{completer: c, log: logger}
}

// Extract never fails loudly: a transport error is returned in the result and
// a reply without a usable JSON object becomes an empty extraction.
func (o *VisionOracle) Extract(ctx context.Context, req OracleRequest) OracleResult {
	rid := uuid.New().String()
	ctx = common.WithRequestID(ctx, rid)
	start := time.Now()

	o.log.Info("llm.oracle.start",
		"req_id", rid,
		"run_id", common.RunIDFromContext(ctx),
		"case_id", req.CaseID,
		"images", len(req.Images),
		"fields", len(req.FieldIDs),
		"tactic_len", len(req.Tactic),
	)

	content, err := o.completer.Complete(ctx, Request{
		System: oracleSystem,
		Prompt: BuildOraclePrompt(req),
		Images: req.Images,
		JSON:   true,
	})
	if err != nil {
		o.log.Error("llm.oracle.call_error",
			"req_id", rid, "case_id", req.CaseID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return OracleResult{Fields: entity.Extraction{}, Err: common.ExternalError("oracle call for case "+req.CaseID, err)}
	}

	fields, err := DecodeExtraction(content)
	if err != nil {
		o.log.Warn("llm.oracle.malformed_response",
			"req_id", rid, "case_id", req.CaseID, "error", err, "raw_bytes", len(content),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return OracleResult{Fields: entity.Extraction{}, Raw: content}
	}

	o.log.Info("llm.oracle.ok",
		"req_id", rid,
		"case_id", req.CaseID,
		"fields_returned", len(fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return OracleResult{Fields: fields, Raw: content}
}
