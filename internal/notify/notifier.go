package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/applytrack/applytrack/internal/domain"
)

// Template names known to the renderer.
const (
	TemplateFollowUpReminder = "follow_up_reminder"
)

var (
	// ErrInvalidEmail is returned when a message is missing a recipient,
	// subject or template.
	ErrInvalidEmail = fmt.Errorf("%w: invalid email", domain.ErrValidation)

	// ErrUnknownTemplate is returned when Email.Template names no template.
	ErrUnknownTemplate = fmt.Errorf("%w: unknown email template", domain.ErrValidation)

	// ErrSendFailed is returned when the provider could not be reached or
	// answered with a retryable status.
	ErrSendFailed = fmt.Errorf("email send failed: %w", domain.ErrTransient)

	// ErrRejected is returned when the provider refused the message.
	ErrRejected = fmt.Errorf("email rejected: %w", domain.ErrFatal)
)

// Email is a single templated message.
type Email struct {
	To       string
	Subject  string
	Template string
	Data     any
}

// Validate checks that the message can be rendered and addressed.
func (e Email) Validate() error {
	switch {
	case e.To == "":
		return fmt.Errorf("%w: missing recipient", ErrInvalidEmail)
	case e.Subject == "":
		return fmt.Errorf("%w: missing subject", ErrInvalidEmail)
	case e.Template == "":
		return fmt.Errorf("%w: missing template", ErrInvalidEmail)
	}
	return nil
}

// Notifier sends email.
type Notifier interface {
	Send(ctx context.Context, email Email) error
}

// IsRetryable reports whether a Send error may succeed on a later attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrTransient)
}

// FollowUpData is the template data for TemplateFollowUpReminder.
type FollowUpData struct {
	CompanyName  string
	Position     string
	ReminderDate string
	AppURL       string
}
