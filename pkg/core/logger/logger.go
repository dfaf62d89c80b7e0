// Package logger holds the process-wide structured logger.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// L is the global logger. It is a no-op until InitLogger runs so packages
// and tests can log unconditionally.
var L = zap.NewNop()

// InitLogger builds a JSON production logger at the given level.
// Call once at startup, after config is loaded.
func InitLogger(levelStr string) error {
	level, ok := parseLevel(levelStr)

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	L = l

	if !ok {
		L.Warn("Invalid LOG_LEVEL specified, defaulting to INFO", zap.String("configuredLevel", levelStr))
	}
	L.Info("Logger initialized", zap.String("level", level.String()))
	return nil
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync() {
	_ = L.Sync()
}

func parseLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}
