package logger

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

type (
	metaKey   struct{}
	loggerKey struct{}
)

// requestMeta carries correlation fields for one inbound message or HTTP request.
// Values are copied on every change so derived contexts never alias the parent.
type requestMeta struct {
	rid      string
	updateID int
	chatID   int64
	userID   string
	handler  string
}

func metaFrom(ctx context.Context) requestMeta {
	if ctx == nil {
		return requestMeta{}
	}
	m, _ := ctx.Value(metaKey{}).(requestMeta)
	return m
}

func withMeta(ctx context.Context, fn func(*requestMeta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaFrom(ctx)
	fn(&m)
	return context.WithValue(ctx, metaKey{}, m)
}

// WithLogger stores the provided slog.Logger in context for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext returns the logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return L
}

// WithRID attaches request correlation id into context.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.rid = rid })
}

// WithUpdateMeta attaches Telegram update identifiers to context.
func WithUpdateMeta(ctx context.Context, updateID int, chatID int64) context.Context {
	return withMeta(ctx, func(m *requestMeta) {
		m.updateID = updateID
		m.chatID = chatID
	})
}

// WithUser attaches the platform-qualified user id ("telegram:42", "whatsapp:34600111222").
func WithUser(ctx context.Context, userID string) context.Context {
	if userID == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *requestMeta) { m.userID = userID })
}

// WithHandler stores handler identifier in context for downstream logs.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *requestMeta) { m.handler = handler })
}

func RIDFrom(ctx context.Context) string     { return metaFrom(ctx).rid }
func UserIDFrom(ctx context.Context) string  { return metaFrom(ctx).userID }
func HandlerFrom(ctx context.Context) string { return metaFrom(ctx).handler }

// BuildRID returns a correlation identifier in the format updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	var b strings.Builder
	b.Grow(32)
	b.WriteString(strconv.Itoa(updateID))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(chatID, 10))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(userID, 10))
	return b.String()
}

// CompactRID rewrites a numeric updateID:chatID:userID rid as dot-separated base36.
// Any other rid (chi request ids, WhatsApp message ids) is returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}
