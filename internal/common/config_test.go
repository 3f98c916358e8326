package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Tuner.MaxAttempts)
	assert.Equal(t, 98.0, cfg.Tuner.TargetScore)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuner.yaml")
	yaml := `
tuner:
  max_attempts: 3
  target_score: 95
llm:
  provider: Anthropic
paths:
  docs_dir: /data/docs
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("TUNER_MAX_ATTEMPTS", "7")
	t.Setenv("DB_URL", "postgres://u:p@localhost/tuner")
	t.Setenv("OPENAI_TIMEOUT", "10s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Tuner.MaxAttempts, "env wins over file")
	assert.Equal(t, 95.0, cfg.Tuner.TargetScore)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "/data/docs", cfg.Paths.DocsDir)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	cfg.Tuner.MaxAttempts = 0
	cfg.Tuner.TargetScore = 120
	cfg.LLM.Provider = "mystery"
	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, CodeConfig, appErr.Code)
	assert.Contains(t, appErr.Message, "tuner.max_attempts")
	assert.Contains(t, appErr.Message, "tuner.target_score")
	assert.Contains(t, appErr.Message, "llm.provider")
}

func TestValidateLLM(t *testing.T) {
	cfg := &Config{LLM: LLMConfig{Provider: ProviderGemini}}
	err := cfg.ValidateLLM()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")

	cfg.LLM.GeminiAPIKey = "k"
	assert.NoError(t, cfg.ValidateLLM())
}

func TestAppErrorIs(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(PersistenceError("write master", cause), "save")
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrExternal))
	assert.True(t, errors.Is(ExternalError("oracle", nil), ErrExternal))
}

func TestEverySentinelHasACode(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrInvalidInput, ErrDatabase, ErrValidation, ErrExternal, ErrPersistence}
	for _, sentinel := range sentinels {
		var code string
		for c, s := range codeSentinels {
			if s == sentinel {
				code = c
			}
		}
		require.NotEmpty(t, code, "no code maps to %v", sentinel)
		assert.ErrorIs(t, NewAppError(code, "x", nil), sentinel)
	}
	assert.Len(t, codeSentinels, len(sentinels))
}

func TestNewLoggerFansOut(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "tuner.jsonl")

	logger, closer, err := NewLogger(LogConfig{Level: "debug", File: file}, &buf)
	require.NoError(t, err)
	logger.Debug("pipeline.extract.start", "family", "6496")
	require.NoError(t, closer.Close())

	assert.Contains(t, buf.String(), "pipeline.extract.start")
	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &rec))
	assert.Equal(t, "6496", rec["family"])
}

func TestRunContext(t *testing.T) {
	ctx, runID := NewRunContext(t.Context(), "6496")
	assert.NotEmpty(t, runID)
	assert.Equal(t, runID, RunIDFromContext(ctx))
	assert.Equal(t, "6496", FamilyFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(ctx))
}
