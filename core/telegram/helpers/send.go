package helpers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func(context.Context) error) error {
	ctx := BuildContext(c)
	disp := currentDispatcher()
	if disp == nil {
		return run(ctx)
	}

	job := sender.Job{Platform: sender.PlatformTelegram, Action: action, Endpoint: endpoint, Run: run}
	if err := disp.Enqueue(ctx, job); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run(ctx)
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string) error {
	return sendAsync(c, "send.text", "sendMessage", func(context.Context) error {
		return c.Send(text)
	})
}

// SendReply sends a conversation reply with Markdown formatting. When Telegram
// rejects the entities the same text is resent without a parse mode.
func SendReply(c tele.Context, text string) error {
	return sendAsync(c, "send.reply", "sendMessage", func(ctx context.Context) error {
		err := c.Send(text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
		if err == nil || !IsEntityError(err) {
			return err
		}
		logger.Debug(ctx, "tg.sender", "send.markdown_fallback",
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return c.Send(text)
	})
}

// IsEntityError reports whether Telegram refused a message because of its formatting.
func IsEntityError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "can't parse entities") || strings.Contains(msg, "can't find end of")
}
