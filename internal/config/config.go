// Package config loads the gembatch configuration from a JSON5 file and
// overlays environment variables. Secrets (bot token, API keys) are expected
// to come from the environment in deployments; the file form exists for
// local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/titanous/json5"
)

const (
	// DefaultQuietPeriod is the delay after the last received message
	// before the aggregated request is dispatched.
	DefaultQuietPeriod = 60 * time.Second

	// DefaultRequestTimeout bounds a single Gemini call.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-pro"

	// DefaultAPIBase is the Gemini REST endpoint root.
	DefaultAPIBase = "https://generativelanguage.googleapis.com/v1beta"
)

// Config is the root configuration for the gembatch bot.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Gemini   GeminiConfig   `json:"gemini"`
	Batch    BatchConfig    `json:"batch"`
}

// TelegramConfig configures the Telegram transport.
type TelegramConfig struct {
	Token string `json:"token"` // from env GEMBATCH_TELEGRAM_TOKEN in deployments
}

// GeminiConfig configures the generation service client and its key pool.
type GeminiConfig struct {
	APIKeys    []string `json:"api_keys"` // rotated round-robin, from env GEMBATCH_GEMINI_API_KEYS
	APIBase    string   `json:"api_base,omitempty"`
	Model      string   `json:"model,omitempty"`
	TimeoutSec int      `json:"timeout_sec,omitempty"`
}

// BatchConfig configures the debounced aggregation behaviour.
type BatchConfig struct {
	QuietPeriodSec int    `json:"quiet_period_sec,omitempty"`
	PromptPrefix   string `json:"prompt_prefix,omitempty"` // prepended to every aggregated prompt
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			APIBase:    DefaultAPIBase,
			Model:      DefaultModel,
			TimeoutSec: int(DefaultRequestTimeout / time.Second),
		},
		Batch: BatchConfig{
			QuietPeriodSec: int(DefaultQuietPeriod / time.Second),
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error: defaults plus env vars apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("GEMBATCH_TELEGRAM_TOKEN", &c.Telegram.Token)
	envStr("GEMBATCH_GEMINI_API_BASE", &c.Gemini.APIBase)
	envStr("GEMBATCH_GEMINI_MODEL", &c.Gemini.Model)
	envStr("GEMBATCH_PROMPT_PREFIX", &c.Batch.PromptPrefix)

	if v := os.Getenv("GEMBATCH_GEMINI_API_KEYS"); v != "" {
		c.Gemini.APIKeys = splitKeys(v)
	}
	if v := os.Getenv("GEMBATCH_QUIET_PERIOD_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			c.Batch.QuietPeriodSec = sec
		}
	}
	if v := os.Getenv("GEMBATCH_GEMINI_TIMEOUT_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			c.Gemini.TimeoutSec = sec
		}
	}
}

// splitKeys parses a comma-separated key list, dropping empty entries.
func splitKeys(s string) []string {
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Validate checks the startup invariants. A failure here must abort the
// process: running without a token or without credentials is never valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is not set (GEMBATCH_TELEGRAM_TOKEN)")
	}
	if len(c.Gemini.APIKeys) == 0 {
		return fmt.Errorf("gemini key pool is empty (GEMBATCH_GEMINI_API_KEYS)")
	}
	for i, k := range c.Gemini.APIKeys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("gemini key pool entry %d is blank", i)
		}
	}
	return nil
}

// QuietPeriod returns the configured quiet period as a duration.
func (c *Config) QuietPeriod() time.Duration {
	if c.Batch.QuietPeriodSec <= 0 {
		return DefaultQuietPeriod
	}
	return time.Duration(c.Batch.QuietPeriodSec) * time.Second
}

// RequestTimeout returns the configured Gemini call timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	if c.Gemini.TimeoutSec <= 0 {
		return DefaultRequestTimeout
	}
	return time.Duration(c.Gemini.TimeoutSec) * time.Second
}
