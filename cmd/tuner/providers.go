package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/tactic-tuner/internal/artifact"
	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/ingest"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm/anthropic"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm/gemini"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm/openai"
	"github.com/joseph-ayodele/tactic-tuner/internal/pipeline"
	"github.com/joseph-ayodele/tactic-tuner/internal/services/tuning"
)

// newCompleter builds the adapter for the configured provider.
func newCompleter(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	switch cfg.Provider {
	case common.ProviderOpenAI, "":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			MaxTokens:   cfg.MaxTokens,
			Retries:     cfg.Retries,
		}, logger), nil
	case common.ProviderAnthropic:
		return anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.AnthropicAPIKey,
			Model:       cfg.AnthropicModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	case common.ProviderGemini:
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
	default:
		return nil, common.InvalidInputErrorf("unknown llm provider %q", cfg.Provider)
	}
}

// tuningService wires the optimization stack from configuration.
func (a *app) tuningService(ctx context.Context) (*tuning.Service, error) {
	if err := a.cfg.ValidateLLM(); err != nil {
		return nil, err
	}
	completer, err := newCompleter(ctx, a.cfg.LLM, a.logger)
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	memory, err := a.memory(ctx)
	if err != nil {
		return nil, err
	}

	store := artifact.NewStore(a.cfg.Paths.PromptsDir, a.logger)
	machine := pipeline.NewMachine(pipeline.Config{
		MaxAttempts: a.cfg.Tuner.MaxAttempts,
		TargetScore: a.cfg.Tuner.TargetScore,
		Workers:     a.cfg.Tuner.Workers,
		CallTimeout: a.cfg.Tuner.CallTimeout,
	}, pipeline.Deps{
		Oracle:    llm.NewOracle(completer, a.logger),
		Optimizer: llm.NewOptimizer(completer, a.logger),
		Memory:    memory,
		Artifacts: store,
	}, a.logger)
	machine.OnTransition = func(s pipeline.State) {
		a.logger.Debug("pipeline.transition", "run_id", s.RunID, "family", s.Family, "state", s.Phase, "avg_score", s.AvgScore)
	}

	return tuning.NewService(a.cfg.Paths.DocsDir, tuning.Deps{
		Loader:    ingest.NewLoader(llm.NewArchitect(completer, a.logger), a.logger),
		Artifacts: store,
		Memory:    memory,
		Machine:   machine,
		Seeder:    completer,
	}, a.logger), nil
}
