package helpers

import (
	"context"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
)

// ctxKey is the tele.Context slot holding the per-update context.Context.
const ctxKey = "leadbot.ctx"

// UserID returns the platform-qualified id used by the conversation engine.
// Telegram conversations are keyed by chat so group members share one form.
func UserID(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}

// ChatID returns the chat id of the update, or 0 when it has no chat.
func ChatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}

// StoreContext attaches reusable context to tele.Context for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(ctxKey, ctx)
	}
}

// ContextFrom returns the context stored by the logging middleware, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(ctxKey).(context.Context)
	return ctx, ok && ctx != nil
}

// NewContext derives a fresh logging context for the update in c: rid,
// update and chat ids, the conversation user id and the "tg" logger.
// A rid already set on c is reused.
func NewContext(c tele.Context) context.Context {
	upd := c.Update()
	chatID := ChatID(c)

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		var senderID int64
		if user := c.Sender(); user != nil {
			senderID = user.ID
		}
		rid = logger.BuildRID(upd.ID, chatID, senderID)
	}

	ctx := logger.WithUpdateMeta(logger.WithRID(context.Background(), rid), upd.ID, chatID)
	if chatID != 0 {
		ctx = logger.WithUser(ctx, UserID(chatID))
	}
	return logger.WithLogger(ctx, logger.Component("tg"))
}

// BuildContext returns the stored context, creating and storing one when missing.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}
	ctx := NewContext(c)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the stored context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}
