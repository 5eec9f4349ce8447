package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/applytrack/applytrack/internal/reminder"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		b.sent = append(b.sent, msg)
	}
	return tgbotapi.Message{}, b.err
}

func TestReport(t *testing.T) {
	bot := &fakeBot{}
	r := &Reporter{bot: bot, chatID: 42}

	err := r.Report(context.Background(), reminder.SweepReport{
		Day:       time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		Scanned:   4,
		Processed: 3,
		Failed:    1,
		Duration:  1500 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Len(t, bot.sent, 1)

	msg := bot.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "2026-03-03")
	assert.Contains(t, msg.Text, "sent: 3")
	assert.Contains(t, msg.Text, "failed: 1")
	assert.Contains(t, msg.Text, "⚠️")
}

func TestReport_SendError(t *testing.T) {
	bot := &fakeBot{err: errors.New("chat not found")}
	r := &Reporter{bot: bot, chatID: 1}

	err := r.Report(context.Background(), reminder.SweepReport{})
	assert.ErrorContains(t, err, "chat not found")
}

func TestReport_CanceledContext(t *testing.T) {
	bot := &fakeBot{}
	r := &Reporter{bot: bot, chatID: 1}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Report(ctx, reminder.SweepReport{}), context.Canceled)
	assert.Empty(t, bot.sent)
}

func TestSendError_EscapesHTML(t *testing.T) {
	bot := &fakeBot{}
	r := &Reporter{bot: bot, chatID: 1}

	require.NoError(t, r.SendError(errors.New("pq: <nil> row")))
	require.Len(t, bot.sent, 1)
	assert.Contains(t, bot.sent[0].Text, "&lt;nil&gt;")
}
