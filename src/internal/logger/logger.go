package logger

import (
	"encoding/json"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Fields map[string]any

var sensitiveKeys = map[string]struct{}{
	"authorization": {},
	"password":      {},
	"secret":        {},
	"token":         {},
	"redispassword": {},
}

var base atomic.Pointer[zap.Logger]

func init() {
	base.Store(zap.NewNop())
}

// Init builds the process logger. Call it once from main before serving.
func Init(service string, level string) error {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	base.Store(l.With(zap.String("service", service)))
	return nil
}

// Use swaps the process logger, mostly for tests.
func Use(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	base.Store(l)
}

func Sync() {
	_ = base.Load().Sync()
}

func Info(message string, fields Fields) {
	base.Load().Info(message, zapFields(fields)...)
}

func Warn(message string, fields Fields) {
	base.Load().Warn(message, zapFields(fields)...)
}

func Error(message string, err error, fields Fields) {
	zf := zapFields(fields)
	if err != nil {
		zf = append(zf, zap.String("error", err.Error()))
	}

	base.Load().Error(message, zf...)
}

func SanitizePayload(payload any) any {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "<unavailable>"
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "<unavailable>"
	}

	return sanitizeValue(data)
}

func zapFields(fields Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}

	sanitized, ok := SanitizePayload(fields).(map[string]any)
	if !ok {
		return []zap.Field{zap.Any("fields", "<unavailable>")}
	}

	keys := make([]string, 0, len(sanitized))
	for k := range sanitized {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, zap.Any(k, sanitized[k]))
	}
	return out
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			if isSensitiveKey(key) {
				out[key] = "******"
				continue
			}
			out[key] = sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitizeValue(item))
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", ""))
	normalized = strings.ReplaceAll(normalized, "_", "")
	_, ok := sensitiveKeys[normalized]
	return ok
}

func parseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
