package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"

	"github.com/aatumaykin/campusnews/internal/reminder"
)

// DefaultPath is where the CLI looks for a configuration file.
const DefaultPath = "./config.toml"

// Load загружает конфигурацию из TOML файла
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// LoadOrDefault loads path if it exists and falls back to defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes a TOML document and applies defaults and env expansion.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Default returns a configuration made of defaults only.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	expandEnvVars(cfg)
	return cfg
}

// Validate проверяет валидность конфигурации
func (c *Config) Validate() []error {
	var errs []error

	// Проверка logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}

	// Проверка storage
	switch c.Storage.Driver {
	case "jsonl", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("invalid storage.driver: %s (expected: jsonl, sqlite)", c.Storage.Driver))
	}
	if err := validatePath(c.Storage.Path, "storage.path"); err != nil {
		errs = append(errs, err)
	}
	if c.Storage.BusyTimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("storage.busy_timeout_ms must be >= 0"))
	}

	// Проверка scheduler
	if _, err := c.Scheduler.Location(); err != nil {
		errs = append(errs, fmt.Errorf("invalid scheduler.timezone: %w", err))
	}
	if _, err := cron.ParseStandard(c.Scheduler.PollSpec); err != nil {
		errs = append(errs, fmt.Errorf("invalid scheduler.poll_spec %q: %w", c.Scheduler.PollSpec, err))
	}
	if !reminder.ValidAdvancePolicy(reminder.AdvancePolicy(c.Scheduler.AdvancePolicy)) {
		errs = append(errs, fmt.Errorf("invalid scheduler.advance_policy: %s (expected: rescan, step)", c.Scheduler.AdvancePolicy))
	}
	if c.Scheduler.MissedGraceSeconds < 0 {
		errs = append(errs, fmt.Errorf("scheduler.missed_grace_seconds must be >= 0"))
	}
	if c.Scheduler.EmitRatePerSecond < 0 || c.Scheduler.EmitBurst < 0 {
		errs = append(errs, fmt.Errorf("scheduler.emit_rate_per_second and scheduler.emit_burst must be >= 0"))
	}

	// Проверка limits
	if c.Limits.TitleMax < 0 || c.Limits.TextMax < 0 {
		errs = append(errs, fmt.Errorf("limits.title_max and limits.text_max must be >= 0"))
	}

	if c.Bus.Capacity < 1 {
		errs = append(errs, fmt.Errorf("bus.capacity must be >= 1"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be >= 1"))
	}
	if c.Retry.MaxBackoffMS < c.Retry.InitialBackoffMS {
		errs = append(errs, fmt.Errorf("retry.max_backoff_ms must be >= retry.initial_backoff_ms"))
	}

	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		errs = append(errs, fmt.Errorf("metrics.listen is required when metrics are enabled"))
	}

	return errs
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}
	return nil
}

// applyDefaults применяет значения по умолчанию
func applyDefaults(c *Config) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "jsonl"
	}
	if c.Storage.Path == "" {
		if c.Storage.Driver == "sqlite" {
			c.Storage.Path = "~/.campusnews/reminders.db"
		} else {
			c.Storage.Path = "~/.campusnews/reminders.jsonl"
		}
	}
	if c.Storage.BusyTimeoutMS == 0 {
		c.Storage.BusyTimeoutMS = 5000
	}

	if c.Scheduler.PollSpec == "" {
		c.Scheduler.PollSpec = "@every 30s"
	}
	if c.Scheduler.AdvancePolicy == "" {
		c.Scheduler.AdvancePolicy = string(reminder.AdvanceRescan)
	}
	if c.Scheduler.MissedGraceSeconds == 0 {
		c.Scheduler.MissedGraceSeconds = 300
	}
	if c.Scheduler.EmitRatePerSecond > 0 && c.Scheduler.EmitBurst == 0 {
		c.Scheduler.EmitBurst = 1
	}

	if c.Limits.TitleMax == 0 {
		c.Limits.TitleMax = 120
	}
	if c.Limits.TextMax == 0 {
		c.Limits.TextMax = 4000
	}

	if c.Bus.Capacity == 0 {
		c.Bus.Capacity = 1000
	}
	if c.Bus.SubscriberBuffer == 0 {
		c.Bus.SubscriberBuffer = 64
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.InitialBackoffMS == 0 {
		c.Retry.InitialBackoffMS = 200
	}
	if c.Retry.MaxBackoffMS == 0 {
		c.Retry.MaxBackoffMS = 2000
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "campusnews"
	}
}

// expandEnvVars расширяет переменные окружения в конфигурации
func expandEnvVars(c *Config) {
	c.Storage.Path = expandHome(expandEnv(c.Storage.Path))
	c.Logging.Output = expandEnv(c.Logging.Output)
	c.Scheduler.Timezone = expandEnv(c.Scheduler.Timezone)
	c.Metrics.Listen = expandEnv(c.Metrics.Listen)
	c.Session.UserID = expandEnv(c.Session.UserID)
}

// expandEnv расширяет переменную окружения формата ${VAR:default}
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if key, defaultVal, ok := strings.Cut(content, ":"); ok {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	// Без значения по умолчанию
	return os.Getenv(content)
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
