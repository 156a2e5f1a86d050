// Package config manages application configuration from defaults,
// config.yaml, and BOT_* environment variables.
package config

import (
	"time"

	"github.com/edgard/kawanbot/internal/i18n"
)

// Config holds the full application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Server    ServerConfig    `mapstructure:"server"`
	Line      LineConfig      `mapstructure:"line"`
	Database  DatabaseConfig  `mapstructure:"database"`
	AI        AIConfig        `mapstructure:"ai"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Maps      MapsConfig      `mapstructure:"maps"`
	Bot       BotConfig       `mapstructure:"bot"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig controls the HTTP server hosting the webhook endpoint.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,min=1s,max=5m"`
}

// LineConfig holds LINE Messaging API credentials.
type LineConfig struct {
	ChannelSecret string `mapstructure:"channel_secret" validate:"required"`
	ChannelToken  string `mapstructure:"channel_token"  validate:"required"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// AIConfig configures the OpenAI-compatible chat completion client.
type AIConfig struct {
	BaseURL     string        `mapstructure:"base_url"    validate:"omitempty,url"`
	APIKey      string        `mapstructure:"api_key"     validate:"required"`
	Model       string        `mapstructure:"model"       validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens   int           `mapstructure:"max_tokens"  validate:"min=1,max=32768"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"required,min=1s,max=10m"`
}

// GeminiConfig configures the Gemini translation client.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"             validate:"required"`
	ModelName         string  `mapstructure:"model_name"          validate:"required"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=1,max=60"`
}

// MapsConfig configures the Google Maps places client. Nearby-place
// lookups are disabled when the key is empty.
type MapsConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// BotConfig holds conversation behavior settings.
type BotConfig struct {
	DefaultLanguage i18n.Code `mapstructure:"default_language"  validate:"required"`
	HistoryLimit    int       `mapstructure:"history_limit"     validate:"min=1,max=50"`
	MaxMessageChars int       `mapstructure:"max_message_chars" validate:"min=100"`
	MaxHistoryChars int       `mapstructure:"max_history_chars" validate:"min=100"`
	RetentionDays   int       `mapstructure:"retention_days"    validate:"min=1"`
	NearbyResults   int       `mapstructure:"nearby_results"    validate:"min=1,max=20"`
}

// SchedulerConfig holds per-task scheduling settings keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a single scheduled task with a cron expression.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}
