// Package telegram posts reminder sweep summaries to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/applytrack/applytrack/internal/reminder"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of *tgbotapi.BotAPI the reporter uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Reporter implements reminder.Reporter.
type Reporter struct {
	bot    sender
	chatID int64
}

var _ reminder.Reporter = (*Reporter)(nil)

// NewReporter connects to the Bot API with token.
func NewReporter(token string, chatID int64) (*Reporter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return &Reporter{bot: bot, chatID: chatID}, nil
}

// Report sends a short HTML summary of the sweep.
func (r *Reporter) Report(ctx context.Context, report reminder.SweepReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(r.chatID, formatReport(report))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := r.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram report: %w", err)
	}
	return nil
}

// SendError posts a failure notice, e.g. when the due set could not be read.
func (r *Reporter) SendError(err error) error {
	msg := tgbotapi.NewMessage(r.chatID,
		fmt.Sprintf("⚠️ <b>Reminder sweep failed</b>\n%s", html.EscapeString(err.Error())))
	msg.ParseMode = tgbotapi.ModeHTML
	_, sendErr := r.bot.Send(msg)
	return sendErr
}

func formatReport(report reminder.SweepReport) string {
	icon := "✅"
	if report.Failed > 0 {
		icon = "⚠️"
	}
	return fmt.Sprintf(
		"%s <b>Follow-up reminders for %s</b>\n"+
			"📋 due: %d\n"+
			"📨 sent: %d\n"+
			"❌ failed: %d\n"+
			"⏱ %s",
		icon,
		report.Day.Format(time.DateOnly),
		report.Scanned,
		report.Processed,
		report.Failed,
		report.Duration.Round(time.Millisecond),
	)
}
