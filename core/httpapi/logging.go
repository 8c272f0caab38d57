package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/leadbot/core/logger"
)

// LoggingMiddleware attaches the request id to the context and logs one line per request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if rid := chimw.GetReqID(ctx); rid != "" {
			ctx = logger.WithRID(ctx, rid)
		}
		r = r.WithContext(ctx)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.Event(ctx, "http", level, "http.request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
		)
	})
}
