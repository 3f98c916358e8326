package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tactic-tuner/internal/common"
)

// StatusError is returned for a non-2xx reply. Body is truncated.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status: %d: %s", e.Status, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

type sendOptions struct {
	retries int
	backoff time.Duration
}

// SendOption tunes SendJSON.
type SendOption func(*sendOptions)

// WithRetries retries 429 and 5xx replies up to n more times, doubling the wait from backoff.
func WithRetries(n int, backoff time.Duration) SendOption {
	return func(o *sendOptions) {
		if n > 0 {
			o.retries = n
		}
		if backoff > 0 {
			o.backoff = backoff
		}
	}
}

// SendJSON posts body as JSON to url and returns the raw response body and status.
// It is provider-agnostic; callers pick the URL and auth headers.
// The request id in ctx, if any, tags the log lines so they join the caller's.
func SendJSON(ctx context.Context, client *http.Client, url string, body any, headers map[string]string, logger *slog.Logger, opts ...SendOption) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	o := sendOptions{backoff: time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}

	bs, err := json.Marshal(body)
	if err != nil {
		logger.Error("llm.http.encode_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("encode json: %w", err)
	}

	wait := o.backoff
	for attempt := 0; ; attempt++ {
		raw, status, err := post(ctx, client, url, bs, headers, reqID, attempt, logger)
		if err == nil {
			return raw, status, nil
		}
		se, ok := err.(*StatusError)
		if !ok || !se.Retryable() || attempt >= o.retries {
			return raw, status, err
		}
		logger.Warn("llm.http.retry", "req_id", reqID, "status", status, "attempt", attempt+1, "wait_ms", wait.Milliseconds())
		select {
		case <-ctx.Done():
			return raw, status, common.ExternalError("request cancelled during backoff", ctx.Err())
		case <-time.After(wait):
		}
		wait *= 2
	}
}

func post(ctx context.Context, client *http.Client, url string, bs []byte, headers map[string]string, reqID string, attempt int, logger *slog.Logger) ([]byte, int, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Debug("llm.http.request", "req_id", reqID, "url", url, "content_length", len(bs), "attempt", attempt)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, common.ExternalError("send request", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, common.ExternalError("read response", err)
	}

	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, &StatusError{Status: resp.StatusCode, Body: truncateRunes(string(raw), 300)}
	}
	return raw, resp.StatusCode, nil
}
