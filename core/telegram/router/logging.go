package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/logger"
	tghelpers "github.com/m3rciful/leadbot/core/telegram/helpers"
)

// handlerSummary is the single "handler.handled" line written per routed update.
type handlerSummary struct {
	name    string
	start   time.Time
	replied bool
	err     error
}

// status is skip when the handler neither replied nor failed.
func (s handlerSummary) status() string {
	if s.err == nil && !s.replied {
		return "skip"
	}
	return logger.Status(s.err)
}

func (s handlerSummary) log(c tele.Context) {
	ctx := tghelpers.WithHandler(c, s.name)
	attrs := []slog.Attr{
		slog.String("status", s.status()),
		slog.String("platform", "telegram"),
		slog.Bool("replied", s.replied),
		slog.Duration("took", logger.Took(s.start)),
	}
	level := slog.LevelInfo
	if s.err != nil {
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(s.err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(s.err)),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), level, "handler.handled", attrs...)
}

// runHandler tags the context with name, runs fn and logs its summary.
func runHandler(c tele.Context, name string, fn func() (bool, error)) error {
	s := handlerSummary{name: name, start: time.Now()}
	tghelpers.WithHandler(c, name)
	s.replied, s.err = fn()
	s.log(c)
	return s.err
}

func normalizeHandlerName(name string) string {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	if name == "" {
		return "unknown"
	}
	return strings.Join(strings.Fields(name), "_")
}

// deriveErrorCode prefers an error's Code() and falls back to its type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.Join(strings.Fields(coded.Code()), "_"); code != "" {
			return strings.ToUpper(code)
		}
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
