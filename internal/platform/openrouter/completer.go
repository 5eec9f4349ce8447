// Package openrouter implements generation.Completer against the OpenRouter
// chat completions API.
package openrouter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/applytrack/applytrack/internal/generation"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const systemPrompt = "You are an assistant that evaluates CVs against job descriptions. Reply with JSON only."

// Config configures a Completer.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Completer implements generation.Completer with OpenRouter.
type Completer struct {
	client *resty.Client
	config Config
	logger *slog.Logger
}

var _ generation.Completer = (*Completer)(nil)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// NewCompleter validates cfg and builds the HTTP client.
func NewCompleter(cfg Config, logger *slog.Logger) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openrouter API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Completer{
		client: client,
		config: cfg,
		logger: logger.With("component", "openrouter", "model", cfg.Model),
	}, nil
}

// Complete posts a single chat completion and returns the first choice.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", generation.ErrGenerationFailed)
	}

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.config.Model,
			Messages: []message{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: prompt},
			},
			Temperature:    c.config.Temperature,
			ResponseFormat: &responseFormat{Type: "json_object"},
		}).
		Post("/chat/completions")
	if err != nil {
		c.logger.ErrorContext(ctx, "OpenRouter request failed", "error", err)
		if errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
		}
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	body := resp.String()
	if resp.IsError() {
		msg := gjson.Get(body, "error.message").String()
		if msg == "" {
			msg = resp.Status()
		}
		c.logger.ErrorContext(ctx, "OpenRouter returned an error",
			"status", resp.StatusCode(),
			"message", msg)
		if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError {
			return "", fmt.Errorf("%w: status %d: %s", generation.ErrTransientFailure, resp.StatusCode(), msg)
		}
		return "", fmt.Errorf("%w: status %d: %s", generation.ErrGenerationFailed, resp.StatusCode(), msg)
	}

	if gjson.Get(body, "choices.0.finish_reason").String() == "content_filter" {
		return "", fmt.Errorf("%w: content_filter", generation.ErrContentBlocked)
	}
	text := gjson.Get(body, "choices.0.message.content").String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no content in response", generation.ErrInvalidResponse)
	}

	c.logger.InfoContext(ctx, "OpenRouter call successful",
		"response_length", len(text),
		"total_tokens", gjson.Get(body, "usage.total_tokens").Int(),
		"duration_ms", time.Since(start).Milliseconds())
	return text, nil
}
