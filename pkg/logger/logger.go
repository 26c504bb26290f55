// Package logger wraps zap with context-aware helpers. Request
// handlers and services log through the package functions; trace and
// actor identity are pulled from the context automatically.
package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "stockledger/internal/core/context"
)

// Logger is a thin wrapper over zap.SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// Config holds logger configuration.
type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // human-readable colored output
	OutputPaths []string
}

// New builds a Logger from configuration. An unknown level falls back
// to info rather than failing startup.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}

	zl, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{zl.Sugar()}, nil
}

var (
	defaultOnce sync.Once
	defaultLog  *Logger
)

// Default returns the shared production logger writing to stdout.
func Default() *Logger {
	defaultOnce.Do(func() {
		zc := zap.NewProductionConfig()
		zc.OutputPaths = []string{"stdout"}
		zl, _ := zc.Build(zap.AddCallerSkip(1))
		defaultLog = &Logger{zl.Sugar()}
	})
	return defaultLog
}

// With returns a logger with extra key-value pairs attached.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{l.SugaredLogger.With(keysAndValues...)}
}

// WithContext attaches trace and actor fields carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	sugar := l.SugaredLogger
	if tr := appctx.GetTrace(ctx); tr != nil {
		sugar = sugar.With("trace_id", tr.TraceID, "request_id", tr.RequestID)
	}
	if actor := appctx.GetActor(ctx); actor != nil {
		sugar = sugar.With("user_id", actor.UserID, "user_role", actor.Role)
	}
	return &Logger{sugar}
}

type loggerKey struct{}

// WithLogger stores a logger in the context for FromContext to find.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the context's logger, or the default, with
// context fields already attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l.WithContext(ctx)
	}
	return Default().WithContext(ctx)
}

// Debug logs at debug level using the context's logger.
func Debug(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Debugw(msg, keysAndValues...)
}

// Info logs at info level using the context's logger.
func Info(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Infow(msg, keysAndValues...)
}

// Warn logs at warn level using the context's logger.
func Warn(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Warnw(msg, keysAndValues...)
}

// Error logs at error level using the context's logger.
func Error(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Errorw(msg, keysAndValues...)
}
