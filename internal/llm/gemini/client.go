// Package gemini adapts the Google Gemini API to llm.Completer.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm"
)

type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg    Config
	client *genai.Client
	log    *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, common.NewAppError(common.CodeConfig, "GEMINI_API_KEY is required", common.ErrInvalidInput)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	cc := &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL, Timeout: &cfg.Timeout},
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Client{cfg: cfg, client: client, log: logger}, nil
}

// Complete implements llm.Completer with one GenerateContent call.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()
	c.log.Info("llm.gemini.request", "req_id", rid, "model", c.cfg.Model, "images", len(req.Images))

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, buildContents(req), c.buildConfig(req))
	if err != nil {
		c.log.Error("llm.gemini.error", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	c.log.Info("llm.gemini.response", "req_id", rid, "bytes", len(text),
		"elapsed_ms", time.Since(start).Milliseconds())
	if text == "" {
		return "", errors.New("gemini: no text in response")
	}
	return text, nil
}

func buildContents(req llm.Request) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, img := range req.Images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MimeType))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func (c *Client) buildConfig(req llm.Request) *genai.GenerateContentConfig {
	temp := c.cfg.Temperature
	if req.Temperature > 0 {
		temp = req.Temperature
	}
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr(temp)}
	if s := strings.TrimSpace(req.System); s != "" {
		cfg.SystemInstruction = genai.NewContentFromText(s, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	if c.cfg.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(c.cfg.MaxTokens)
	}
	return cfg
}
