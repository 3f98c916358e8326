// Package anthropic adapts the Anthropic Messages API to llm.Completer.
package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm"
)

const jsonInstruction = "Respond with a single JSON object and nothing else."

type Config struct {
	APIKey      string // if empty, falls back to env ANTHROPIC_API_KEY
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg   Config
	inner sdk.Client
	log   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, common.NewAppError(common.CodeConfig, "ANTHROPIC_API_KEY is required", common.ErrInvalidInput)
	}
	if cfg.Model == "" {
		cfg.Model = string(sdk.ModelClaudeSonnet4_20250514)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{cfg: cfg, inner: sdk.NewClient(opts...), log: logger}, nil
}

// Complete implements llm.Completer with one Messages call. Image pages come
// before the prompt text in the user turn.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()
	c.log.Info("llm.anthropic.request", "req_id", rid, "model", c.cfg.Model, "images", len(req.Images))

	resp, err := c.inner.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		c.log.Error("llm.anthropic.error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(sdk.TextBlock); ok {
			b.WriteString(variant.Text)
		}
	}
	c.log.Info("llm.anthropic.response",
		"req_id", rid,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("anthropic: no text in response")
	}
	return text, nil
}

func (c *Client) buildParams(req llm.Request) sdk.MessageNewParams {
	blocks := make([]sdk.ContentBlockParamUnion, 0, len(req.Images)+1)
	for _, img := range req.Images {
		blocks = append(blocks, sdk.NewImageBlockBase64(img.MimeType, base64.StdEncoding.EncodeToString(img.Data)))
	}
	blocks = append(blocks, sdk.NewTextBlock(req.Prompt))

	temp := c.cfg.Temperature
	if req.Temperature > 0 {
		temp = req.Temperature
	}
	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.cfg.Model),
		MaxTokens:   int64(c.cfg.MaxTokens),
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(blocks...)},
		Temperature: sdk.Float(float64(temp)),
	}

	system := strings.TrimSpace(req.System)
	if req.JSON {
		system = strings.TrimSpace(system + "\n" + jsonInstruction)
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	return params
}
