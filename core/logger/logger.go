package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/leadbot/core/buildinfo"
	coreconfig "github.com/m3rciful/leadbot/core/config"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdowned bool

	logWriter  *asyncWriter
	errWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// L is the base logger. It stays nil until InitLogger runs; helpers below tolerate that.
	L *slog.Logger
)

// InitLogger configures the global structured logger. It may be called only once.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		format := selectFormat(cfg)
		order := selectKeyOrder(cfg)
		level := selectLevel(cfg)
		levelVar.Set(level)

		num, den := parseDebugSample(cfg)
		debugSampler.Set(num, den)
		traceOverride = detectTraceFlag()

		outputs, closers := buildOutputs(cfg)
		logClosers = closers
		logWriter = newAsyncWriter(outputs, 64*1024)
		if f := openErrorsFile(cfg); f != nil {
			logClosers = append(logClosers, f)
			errWriter = newAsyncWriter([]io.Writer{f}, 16*1024)
		}

		handler := newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			errors:   errWriter,
			format:   format,
			keyOrder: order,
		})

		logger := slog.New(handler)
		L = logger
		slog.SetDefault(logger)

		logStartup(cfg)
	})
	return nil
}

func logStartup(cfg *coreconfig.Config) {
	if L == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("component", "app"),
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build", buildinfo.String()),
	}
	if cfg != nil {
		attrs = append(attrs,
			slog.String("cfg_profile", selectProfile(cfg)),
			slog.String("telegram_mode", cfg.Telegram.RunMode),
			slog.Bool("whatsapp", cfg.WhatsApp.Enabled),
			slog.String("leads_backend", cfg.Leads.Backend),
			slog.Bool("ai", cfg.AI.Enabled()),
		)
	}
	L.LogAttrs(context.Background(), slog.LevelInfo, "startup", attrs...)
}

// Shutdown flushes buffered log output and closes opened sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdowned {
		return nil
	}
	shutdowned = true

	var errs []error
	for _, w := range []*asyncWriter{logWriter, errWriter} {
		if w == nil {
			continue
		}
		if err := w.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range logClosers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// selectFormat honours logging.format and otherwise picks kv for the dev
// and debug profiles, JSON everywhere else.
func selectFormat(cfg *coreconfig.Config) logFormat {
	if cfg == nil {
		return formatJSON
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch selectProfile(cfg) {
	case "dev", "debug":
		return formatKV
	}
	return formatJSON
}

// selectKeyOrder parses logging.keys_order, a comma separated key list.
func selectKeyOrder(cfg *coreconfig.Config) []string {
	var raw string
	if cfg != nil {
		raw = strings.TrimSpace(cfg.Logging.KeysOrder)
	}
	order := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' })
	if len(order) == 0 || (len(order) == 1 && order[0] == "default") {
		return slices.Clone(defaultKeyOrder)
	}
	return order
}

func selectLevel(cfg *coreconfig.Config) slog.Level {
	if cfg == nil {
		return slog.LevelInfo
	}
	canon, _ := levels.lookup(cfg.Logging.Level)
	switch canon {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError, LevelFatal:
		return slog.LevelError
	}
	return slog.LevelInfo
}

func buildOutputs(cfg *coreconfig.Config) ([]io.Writer, []io.Closer) {
	writers := []io.Writer{os.Stdout}
	var closers []io.Closer
	if cfg == nil {
		return writers, closers
	}
	if f := openLogFile(cfg.Logging.Dir, cfg.Logging.BotFile); f != nil {
		writers = append(writers, f)
		closers = append(closers, f)
	}
	return writers, closers
}

func openErrorsFile(cfg *coreconfig.Config) *os.File {
	if cfg == nil {
		return nil
	}
	return openLogFile(cfg.Logging.Dir, cfg.Logging.ErrorsFile)
}

// openLogFile opens dir/file for appending. Failures are reported on the
// standard logger and leave the sink disabled.
func openLogFile(dir, file string) *os.File {
	dir = strings.TrimSpace(dir)
	file = strings.TrimSpace(file)
	if dir == "" || file == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: failed to create log dir %s: %v", dir, err)
		return nil
	}
	path := filepath.Join(dir, file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: failed to open log file %s: %v", path, err)
		return nil
	}
	return f
}

func selectProfile(cfg *coreconfig.Config) string {
	if cfg == nil {
		return ""
	}
	if profile := strings.TrimSpace(cfg.Logging.Profile); profile != "" {
		return strings.ToLower(profile)
	}
	return "prod"
}

// LogEvent logs through logg, falling back to the context or base logger, with the event attribute first.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		logg = L
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component constructs a logger scoped to the provided component attribute.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return L
	}
	return L.With("component", trimmed)
}

// Event logs with component scope resolved automatically.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := Component(component)
	if logg == nil {
		logg = FromContext(ctx)
		if logg != nil && strings.TrimSpace(component) != "" {
			logg = logg.With("component", strings.TrimSpace(component))
		}
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// parseDebugSample reads logging.debug_sample. "off", "all" and "0" log every
// debug event; an empty or malformed value keeps the 1/50 default.
func parseDebugSample(cfg *coreconfig.Config) (int, int) {
	const defNum, defDen = 1, 50
	if cfg == nil {
		return defNum, defDen
	}
	spec := strings.ToLower(strings.TrimSpace(cfg.Logging.DebugSample))
	switch spec {
	case "":
		return defNum, defDen
	case "off", "all", "0":
		return 0, 0
	}
	if num, den := parseRatioSpec(spec); den > 0 {
		return num, den
	}
	return defNum, defDen
}

func detectTraceFlag() bool {
	for _, key := range []string{"TRACE", "LOG_TRACE"} {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "on", "yes":
			return true
		}
	}
	return false
}

// ShouldSampleDebug reports whether the next high-volume debug event should be logged.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}

// ShouldSampleDebugFor is ShouldSampleDebug keyed by conversation: the same
// user id always gets the same answer for a given ratio.
func ShouldSampleDebugFor(userID string) bool {
	if traceOverride || userID == "" {
		return ShouldSampleDebug()
	}
	return debugSampler.AllowKey(userID)
}
