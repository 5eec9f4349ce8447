package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// MailerConfig configures HTTPMailer.
type MailerConfig struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

// HTTPMailer sends email through a Resend-compatible JSON API
// (POST {BaseURL}/emails).
type HTTPMailer struct {
	client *resty.Client
	from   string
	logger *slog.Logger
}

// NewHTTPMailer creates an HTTPMailer.
func NewHTTPMailer(cfg MailerConfig, logger *slog.Logger) *HTTPMailer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	return &HTTPMailer{client: client, from: cfg.From, logger: logger}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Send renders and delivers e.
func (m *HTTPMailer) Send(ctx context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}
	body, err := Render(e)
	if err != nil {
		return err
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(sendRequest{From: m.from, To: []string{e.To}, Subject: e.Subject, HTML: body}).
		Post("/emails")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	if resp.IsError() {
		msg := gjson.Get(resp.String(), "message").String()
		if msg == "" {
			msg = resp.Status()
		}
		if resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= http.StatusInternalServerError {
			return fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode(), msg)
		}
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode(), msg)
	}

	m.logger.Debug("email sent",
		"template", e.Template,
		"message_id", gjson.Get(resp.String(), "id").String())
	return nil
}
