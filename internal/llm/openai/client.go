package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/tactic-tuner/internal/common"
	"github.com/joseph-ayodele/tactic-tuner/internal/llm"
)

// Complete implements llm.Completer with a single chat/completions call.
// Images are sent as image_url parts carrying data URLs.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, c.buildBody(req), headers, c.log, llm.WithRetries(c.cfg.Retries, time.Second))
	if err != nil {
		c.log.Error("llm.openai.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.openai.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
		)
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.openai.no_choices", "req_id", rid, "raw", string(raw))
		return "", fmt.Errorf("no choices in openai response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

func (c *Client) buildBody(req llm.Request) map[string]any {
	temp := c.cfg.Temperature
	if req.Temperature > 0 {
		temp = req.Temperature
	}

	var messages []map[string]any
	if s := strings.TrimSpace(req.System); s != "" {
		messages = append(messages, map[string]any{"role": "system", "content": s})
	}
	if len(req.Images) == 0 {
		messages = append(messages, map[string]any{"role": "user", "content": req.Prompt})
	} else {
		parts := []map[string]any{{"type": "text", "text": req.Prompt}}
		for _, img := range req.Images {
			parts = append(parts, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": img.DataURL()},
			})
		}
		messages = append(messages, map[string]any{"role": "user", "content": parts})
	}

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": temp,
		"messages":    messages,
	}
	if req.JSON {
		body["response_format"] = map[string]any{"type": "json_object"}
	}
	if c.cfg.MaxTokens > 0 {
		body["max_tokens"] = c.cfg.MaxTokens
	}
	return body
}
