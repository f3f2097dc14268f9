// Package config provides configuration loading and validation for campusnews.
// It supports TOML configuration files with environment variable expansion,
// default values, and validation.
//
// Configuration structure:
//   - [logging]: Logging level, format, and output
//   - [storage]: Reminder store driver (jsonl, sqlite) and path
//   - [scheduler]: Local timezone, poll schedule, advance policy
//   - [limits]: Announcement title/text length limits
//   - [bus]: Announcement bus capacity
//   - [retry]: Emission retry policy
//   - [metrics]: Prometheus exposition
//   - [session]: Operator identity used by CLI commands
//
// Environment variables:
// Values can reference environment variables using ${VAR} or ${VAR:default}.
// For example: path = "${CAMPUSNEWS_DB:~/.campusnews/reminders.db}"
package config

import (
	"time"

	"golang.org/x/time/rate"
)

// Config represents the main application configuration.
type Config struct {
	Logging   LoggingConfig   `toml:"logging"`
	Storage   StorageConfig   `toml:"storage"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Limits    LimitsConfig    `toml:"limits"`
	Bus       BusConfig       `toml:"bus"`
	Retry     RetryConfig     `toml:"retry"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Session   SessionConfig   `toml:"session"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// StorageConfig представляет конфигурацию хранилища напоминаний
type StorageConfig struct {
	Driver        string `toml:"driver"` // jsonl | sqlite
	Path          string `toml:"path"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

// BusyTimeout returns the SQLite busy timeout.
func (c StorageConfig) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMS) * time.Millisecond
}

// SchedulerConfig представляет конфигурацию планировщика
type SchedulerConfig struct {
	Timezone           string `toml:"timezone"`       // IANA name, e.g. "Europe/Berlin"
	PollSpec           string `toml:"poll_spec"`      // cron spec or @every
	AdvancePolicy      string `toml:"advance_policy"` // rescan | step
	MissedGraceSeconds int    `toml:"missed_grace_seconds"`

	// Emission throttle; 0 disables it.
	EmitRatePerSecond float64 `toml:"emit_rate_per_second"`
	EmitBurst         int     `toml:"emit_burst"`
}

// Location resolves Timezone. An empty value means the process local zone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// MissedGrace is how late an occurrence may still be emitted.
func (c SchedulerConfig) MissedGrace() time.Duration {
	return time.Duration(c.MissedGraceSeconds) * time.Second
}

// Limiter returns the emission throttle, or nil when disabled.
func (c SchedulerConfig) Limiter() *rate.Limiter {
	if c.EmitRatePerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.EmitRatePerSecond), c.EmitBurst)
}

// LimitsConfig представляет ограничения длины полей объявления
type LimitsConfig struct {
	TitleMax int `toml:"title_max"`
	TextMax  int `toml:"text_max"`
}

// BusConfig представляет конфигурацию шины объявлений
type BusConfig struct {
	Capacity         int `toml:"capacity"`
	SubscriberBuffer int `toml:"subscriber_buffer"`
}

// RetryConfig представляет политику повторной отправки
type RetryConfig struct {
	MaxAttempts      int `toml:"max_attempts"`
	InitialBackoffMS int `toml:"initial_backoff_ms"`
	MaxBackoffMS     int `toml:"max_backoff_ms"`
}

// MetricsConfig представляет конфигурацию Prometheus метрик
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
	Listen    string `toml:"listen"`
}

// SessionConfig описывает оператора, от имени которого работает CLI
type SessionConfig struct {
	UserID    string   `toml:"user_id"`
	Moderates []string `toml:"moderates"` // channel IDs; "*" means all channels
}
