// Package config loads runtime settings from the environment. A .env file in
// the working directory is honored, then MAILBOT_* variables override the
// defaults. All consumers receive an injected *Config; there is no ambient
// global.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the immutable runtime configuration.
type Config struct {
	// DataDir holds the task areas, reminder records and event log.
	DataDir string

	// PollInterval is the orchestration loop's cycle period.
	PollInterval time.Duration

	// MaxTaskRetries bounds classification/handler retries before a task is
	// finalized as failed.
	MaxTaskRetries int

	// ClassifyTimeout caps each external generation call.
	ClassifyTimeout time.Duration

	// ReminderRetry is the delay before re-attempting a failed reminder
	// delivery within the same process.
	ReminderRetry time.Duration

	// Timezone resolves relative times ("tomorrow at 3pm") and reminder
	// fire times without explicit offsets.
	Timezone string

	// LLMModel and LLMAPIKey configure the generation backend.
	LLMModel  string
	LLMAPIKey string

	// AllowedSenders is the whitelist of addresses reminders and replies may
	// be delivered to. Empty means no restriction.
	AllowedSenders []string
}

// Load reads .env (if present) and the MAILBOT_* environment.
func Load() (*Config, error) {
	// Best effort: a missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("mailbot")
	v.AutomaticEnv()

	v.SetDefault("data_dir", "data")
	v.SetDefault("poll_interval", 5*time.Second)
	v.SetDefault("max_task_retries", 3)
	v.SetDefault("classify_timeout", 60*time.Second)
	v.SetDefault("reminder_retry", time.Minute)
	v.SetDefault("timezone", "America/New_York")
	v.SetDefault("llm_model", "gemini-2.5-flash")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("allowed_senders", "")

	cfg := &Config{
		DataDir:         v.GetString("data_dir"),
		PollInterval:    v.GetDuration("poll_interval"),
		MaxTaskRetries:  v.GetInt("max_task_retries"),
		ClassifyTimeout: v.GetDuration("classify_timeout"),
		ReminderRetry:   v.GetDuration("reminder_retry"),
		Timezone:        v.GetString("timezone"),
		LLMModel:        v.GetString("llm_model"),
		LLMAPIKey:       v.GetString("llm_api_key"),
		AllowedSenders:  splitList(v.GetString("allowed_senders")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values for consistency.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxTaskRetries < 1 {
		return fmt.Errorf("max_task_retries must be at least 1, got %d", c.MaxTaskRetries)
	}
	if c.ClassifyTimeout <= 0 {
		return fmt.Errorf("classify_timeout must be positive, got %s", c.ClassifyTimeout)
	}
	if c.ReminderRetry <= 0 {
		return fmt.Errorf("reminder_retry must be positive, got %s", c.ReminderRetry)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SenderAllowed reports whether addr passes the whitelist. Comparison is
// case-insensitive; an empty whitelist allows everything.
func (c *Config) SenderAllowed(addr string) bool {
	if len(c.AllowedSenders) == 0 {
		return true
	}
	for _, s := range c.AllowedSenders {
		if strings.EqualFold(s, addr) {
			return true
		}
	}
	return false
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
