package notify

import (
	"context"
	"log/slog"
)

// LogNotifier renders messages and writes them to the log instead of
// sending them. It is used when no mail provider is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send implements Notifier.
func (n *LogNotifier) Send(ctx context.Context, e Email) error {
	if err := e.Validate(); err != nil {
		return err
	}
	body, err := Render(e)
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "email not sent, log-only notifier",
		"to", e.To,
		"subject", e.Subject,
		"template", e.Template,
		"body_bytes", len(body))
	return nil
}
