package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name, e.g.
// APPLYTRACK_DATABASE_URL for database.url.
const EnvPrefix = "APPLYTRACK"

// keys without defaults still need binding so AutomaticEnv can populate them
// during Unmarshal.
var envOnlyKeys = []string{
	"database.url",
	"server.log_file",
	"llm.gemini_api_key",
	"llm.openrouter_api_key",
	"mail.api_key",
	"mail.from",
	"reminder.app_url",
	"telegram.token",
	"telegram.chat_id",
}

// Load reads configuration from an optional config file and environment
// variables. Environment variables take precedence over file values, which
// take precedence over defaults. When configFile is empty, a file named
// "config" (any supported extension) in the working directory is used if
// present.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags on cfg and the limits that span sections.
// A task must outlive its AI call, and the task lease must outlive the task.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.LLM.Timeout > cfg.Worker.TaskTimeout {
		return fmt.Errorf("invalid configuration: llm.timeout (%s) must not exceed worker.task_timeout (%s)",
			cfg.LLM.Timeout, cfg.Worker.TaskTimeout)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("llm.provider", "none")
	v.SetDefault("llm.gemini_model", "gemini-2.0-flash")
	v.SetDefault("llm.openrouter_model", "google/gemini-2.0-flash-001")
	v.SetDefault("llm.openrouter_base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.poll_interval", 2*time.Second)
	v.SetDefault("worker.visibility_timeout", 5*time.Minute)
	v.SetDefault("worker.task_timeout", 3*time.Minute)
	v.SetDefault("worker.shutdown_timeout", 30*time.Second)

	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.timezone", "UTC")
	v.SetDefault("reminder.gate_hour", 8)
	v.SetDefault("reminder.send_concurrency", 5)
	v.SetDefault("reminder.send_timeout", 10*time.Second)

	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.base_url", "https://api.resend.com")
	v.SetDefault("mail.timeout", 10*time.Second)
}
