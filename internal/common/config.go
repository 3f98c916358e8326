package common

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported LLM providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Supported memory backends
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Tuner    TunerConfig    `mapstructure:"tuner"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig holds tactic memory storage configuration
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"`
	DSN              string        `mapstructure:"dsn"`
	Path             string        `mapstructure:"path"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"`
	Model           string        `mapstructure:"model"`
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Temperature     float32       `mapstructure:"temperature"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Retries         int           `mapstructure:"retries"`
	AnthropicAPIKey string        `mapstructure:"anthropic_api_key"`
	AnthropicModel  string        `mapstructure:"anthropic_model"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	GeminiModel     string        `mapstructure:"gemini_model"`
}

// TunerConfig holds the optimization loop knobs
type TunerConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`
	TargetScore   float64       `mapstructure:"target_score"`
	Workers       int           `mapstructure:"workers"`
	CallTimeout   time.Duration `mapstructure:"call_timeout"`
	QueueSize     int           `mapstructure:"queue_size"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
}

// PathsConfig holds input and output directories
type PathsConfig struct {
	DocsDir    string `mapstructure:"docs_dir"`
	PromptsDir string `mapstructure:"prompts_dir"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"database.driver":             "DB_DRIVER",
	"database.dsn":                "DB_URL",
	"database.path":               "DB_PATH",
	"database.max_conns":          "DB_MAX_CONNS",
	"database.min_conns":          "DB_MIN_CONNS",
	"database.max_conn_lifetime":  "DB_MAX_CONN_LIFETIME",
	"database.max_conn_idle_time": "DB_MAX_CONN_IDLE_TIME",
	"database.dial_timeout":       "DB_DIAL_TIMEOUT",
	"database.statement_timeout":  "DB_STATEMENT_TIMEOUT",
	"llm.provider":                "LLM_PROVIDER",
	"llm.model":                   "OPENAI_MODEL",
	"llm.api_key":                 "OPENAI_API_KEY",
	"llm.base_url":                "OPENAI_BASE_URL",
	"llm.temperature":             "OPENAI_TEMPERATURE",
	"llm.timeout":                 "OPENAI_TIMEOUT",
	"llm.max_tokens":              "LLM_MAX_TOKENS",
	"llm.retries":                 "LLM_RETRIES",
	"llm.anthropic_api_key":       "ANTHROPIC_API_KEY",
	"llm.anthropic_model":         "ANTHROPIC_MODEL",
	"llm.gemini_api_key":          "GEMINI_API_KEY",
	"llm.gemini_model":            "GEMINI_MODEL",
	"tuner.max_attempts":          "TUNER_MAX_ATTEMPTS",
	"tuner.target_score":          "TUNER_TARGET_SCORE",
	"tuner.workers":               "TUNER_WORKERS",
	"tuner.call_timeout":          "TUNER_CALL_TIMEOUT",
	"tuner.queue_size":            "TUNER_QUEUE_SIZE",
	"tuner.watch_debounce":        "TUNER_WATCH_DEBOUNCE",
	"paths.docs_dir":              "TUNER_DOCS_DIR",
	"paths.prompts_dir":           "TUNER_PROMPTS_DIR",
	"log.level":                   "LOG_LEVEL",
	"log.file":                    "LOG_FILE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.path", "./tuner.db")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.max_conn_idle_time", "5m")
	v.SetDefault("database.dial_timeout", "3s")
	v.SetDefault("database.statement_timeout", "0s")

	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.timeout", "45s")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.retries", 2)
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.anthropic_model", "claude-sonnet-4-5")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.gemini_model", "gemini-2.5-flash")

	v.SetDefault("tuner.max_attempts", 5)
	v.SetDefault("tuner.target_score", 98.0)
	v.SetDefault("tuner.workers", 4)
	v.SetDefault("tuner.call_timeout", "2m")
	v.SetDefault("tuner.queue_size", 16)
	v.SetDefault("tuner.watch_debounce", "1s")

	v.SetDefault("paths.docs_dir", "./docs")
	v.SetDefault("paths.prompts_dir", "./prompts")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// LoadConfig loads configuration from defaults, an optional YAML file and
// environment variables, in increasing order of precedence. An empty path
// looks for tuner.yaml in the working directory and tolerates its absence.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tuner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
		if strings.HasPrefix(cfg.Database.DSN, "postgres") {
			cfg.Database.Driver = DriverPostgres
		}
	}
	return cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("database.driver", c.Database.Driver, OneOf(DriverSQLite, DriverPostgres)).
		Field("tuner.max_attempts", c.Tuner.MaxAttempts, Positive).
		Field("tuner.workers", c.Tuner.Workers, Positive).
		Field("tuner.target_score", c.Tuner.TargetScore, Between(0, 100)).
		Field("llm.provider", c.LLM.Provider, OneOf(ProviderOpenAI, ProviderAnthropic, ProviderGemini)).
		Field("paths.docs_dir", c.Paths.DocsDir, Required).
		Field("paths.prompts_dir", c.Paths.PromptsDir, Required)

	switch c.Database.Driver {
	case DriverPostgres:
		v.Field("database.dsn", c.Database.DSN, Required)
	case DriverSQLite:
		v.Field("database.path", c.Database.Path, Required)
	}
	return ValidateAndReturnError(v)
}

// ValidateLLM checks that the selected provider has credentials.
func (c *Config) ValidateLLM() error {
	var key, env string
	switch c.LLM.Provider {
	case ProviderAnthropic:
		key, env = c.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY"
	case ProviderGemini:
		key, env = c.LLM.GeminiAPIKey, "GEMINI_API_KEY"
	default:
		key, env = c.LLM.APIKey, "OPENAI_API_KEY"
	}
	if strings.TrimSpace(key) == "" {
		return NewAppError(CodeConfig, env+" is required", ErrInvalidInput)
	}
	return nil
}
