package logger

import "strings"

const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelFatal = "FATAL"
)

// enum maps accepted spellings to their canonical value.
type enum map[string]string

func (e enum) lookup(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "", false
	}
	if canon, ok := e[v]; ok {
		return canon, true
	}
	return v, false
}

var levels = enum{
	"debug":   LevelDebug,
	"info":    LevelInfo,
	"warn":    LevelWarn,
	"warning": LevelWarn,
	"error":   LevelError,
	"fatal":   LevelFatal,
}

// statuses maps aliases onto the allowed status set. Other values are logged as given.
var statuses = enum{
	"ok":           "ok",
	"fail":         "fail",
	"error":        "fail",
	"skip":         "skip",
	"retry":        "retry",
	"rate_limited": "rate_limited",
	"cancelled":    "cancelled",
	"canceled":     "cancelled",
}

// outcomes describe how a lead commit ended. Unknown outcomes are dropped.
var outcomes = enum{
	"ok":           "ok",
	"fail":         "fail",
	"duplicate":    "duplicate",
	"cancelled":    "cancelled",
	"rate_limited": "rate_limited",
}

func normalizeLevel(level string) string {
	if level == "" {
		return LevelInfo
	}
	if canon, ok := levels.lookup(level); ok {
		return canon
	}
	return strings.ToUpper(level)
}

// defaultKeyOrder puts correlation first, then the conversation, then transport details.
var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"platform",
	"handler",
	"step",
	"from",
	"to",
	"lead_id",
	"phone",
	"outcome",
	"op",
	"took_ms",
	"duration_ms",
	"payload",
	"messages",
	"method",
	"path",
	"http_code",
	"bytes",
	"mode",
	"listen",
	"public_url",
	"backend",
	"db",
	"host",
	"port",
	"model",
	"err",
	"err_code",
	"code",
	"retryable",
	"attempts",
	"backoff_ms",
}
