package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/entity"
)

const seedTemperature = 0.1

// SeedInstructions asks a vision model for base instructions for a family
// that has none, from one case image and its ground truth. Ground-truth values
// echoed back are masked.
func SeedInstructions(ctx context.Context, c Completer, page Image, expected entity.Expected, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(expected) == 0 {
		return "", common.InvalidInputError("seed case has no expected values")
	}
	start := time.Now()
	logger.Info("llm.seed.start", "fields", len(expected), "image", page.Path)

	content, err := c.Complete(ctx, Request{
		Prompt:      BuildSeedPrompt(expected),
		Images:      []Image{page},
		Temperature: seedTemperature,
	})
	if err != nil {
		logger.Error("llm.seed.call_error", "error", err)
		return "", common.ExternalError("seed instructions", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", common.ExternalError("seed instructions", errors.New("empty reply"))
	}

	masked := MaskSeed(content, expected)
	if !strings.Contains(masked, "{{") {
		logger.Warn("llm.seed.no_field_tags", "hint", "instructions do not use the {{ID:name}} syntax")
	}
	logger.Info("llm.seed.ok", "len", len(masked), "elapsed_ms", time.Since(start).Milliseconds())
	return masked, nil
}
