package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mailpilot/pkg/trace"
)

var Log *zap.Logger

// NewLogger builds the production JSON logger and stores it in Log.
func NewLogger() *zap.Logger {
	return NewLoggerWithLevel("")
}

// NewLoggerWithLevel builds a production logger at the given level
// ("debug", "info", "warn", "error"). Unknown or empty levels mean info.
func NewLoggerWithLevel(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}
	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}

// WithTrace returns logger annotated with the trace_id carried by ctx.
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	traceID := trace.FromContext(ctx)
	if traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}
