package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
	Reminder ReminderConfig `mapstructure:"reminder" validate:"required"`
	Mail     MailConfig     `mapstructure:"mail"     validate:"required"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	LogFile         string        `mapstructure:"log_file"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// LLMConfig selects and configures the AI completion provider. Provider
// "none" disables analysis; tasks then fail with a clear reason.
type LLMConfig struct {
	Provider          string        `mapstructure:"provider"            validate:"required,oneof=gemini openrouter none"`
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"      validate:"required_if=Provider gemini"`
	GeminiModel       string        `mapstructure:"gemini_model"        validate:"required_if=Provider gemini"`
	OpenRouterAPIKey  string        `mapstructure:"openrouter_api_key"  validate:"required_if=Provider openrouter"`
	OpenRouterModel   string        `mapstructure:"openrouter_model"    validate:"required_if=Provider openrouter"`
	OpenRouterBaseURL string        `mapstructure:"openrouter_base_url" validate:"omitempty,url"`
	Temperature       float32       `mapstructure:"temperature"         validate:"gte=0,lte=2"`
	Timeout           time.Duration `mapstructure:"timeout"             validate:"gt=0"`
}

// WorkerConfig tunes the background worker pool.
type WorkerConfig struct {
	Count             int           `mapstructure:"count"              validate:"gte=1,lte=64"`
	PollInterval      time.Duration `mapstructure:"poll_interval"      validate:"gt=0"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout" validate:"gt=0"`
	TaskTimeout       time.Duration `mapstructure:"task_timeout"       validate:"gt=0,ltfield=VisibilityTimeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"   validate:"gt=0"`
}

// ReminderConfig controls the daily follow-up sweep.
type ReminderConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Timezone        string        `mapstructure:"timezone"         validate:"required,timezone"`
	GateHour        int           `mapstructure:"gate_hour"        validate:"gte=0,lte=23"`
	SendConcurrency int           `mapstructure:"send_concurrency" validate:"gte=1,lte=100"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"     validate:"gt=0"`
	AppURL          string        `mapstructure:"app_url"          validate:"omitempty,url"`
}

// Location resolves the configured reference time zone.
func (c ReminderConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// MailConfig configures the outbound email gateway. Provider "log" only
// writes messages to the log and needs no credentials.
type MailConfig struct {
	Provider string        `mapstructure:"provider" validate:"required,oneof=resend log"`
	APIKey   string        `mapstructure:"api_key"  validate:"required_if=Provider resend"`
	BaseURL  string        `mapstructure:"base_url" validate:"omitempty,url"`
	From     string        `mapstructure:"from"     validate:"required_if=Provider resend"`
	Timeout  time.Duration `mapstructure:"timeout"  validate:"gt=0"`
}

// TelegramConfig enables the operator sweep report. Both fields must be set
// for reports to be sent.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// Enabled reports whether Telegram reporting is configured.
func (c TelegramConfig) Enabled() bool {
	return c.Token != "" && c.ChatID != 0
}
