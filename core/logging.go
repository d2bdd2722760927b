package core

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

var defaultLogger = zap.NewNop()

// SetDefaultLogger replaces the logger used when a context carries none.
func SetDefaultLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	defaultLogger = l
}

// DefaultLogger returns the process-wide logger.
func DefaultLogger() *zap.Logger {
	return defaultLogger
}

// WithLogger stores a sugared logger tagged with reqID in ctx.
func WithLogger(ctx context.Context, l *zap.Logger, reqID string) context.Context {
	if l == nil {
		l = defaultLogger
	}
	return context.WithValue(ctx, loggerKey{}, l.Sugar().With("req", reqID))
}

// WithDefaultLogger is WithLogger using the process-wide logger.
func WithDefaultLogger(ctx context.Context, reqID string) context.Context {
	return WithLogger(ctx, defaultLogger, reqID)
}

// Logger returns the logger carried by ctx.
func Logger(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.SugaredLogger); ok {
			return l
		}
	}
	return defaultLogger.Sugar()
}

func Debugf(ctx context.Context, tpl string, args ...any) { Logger(ctx).Debugf(tpl, args...) }
func Infof(ctx context.Context, tpl string, args ...any)  { Logger(ctx).Infof(tpl, args...) }
func Warnf(ctx context.Context, tpl string, args ...any)  { Logger(ctx).Warnf(tpl, args...) }
func Errorf(ctx context.Context, tpl string, args ...any) { Logger(ctx).Errorf(tpl, args...) }

// NewLogger builds a zap logger for the given level name. Development
// loggers are human readable.
func NewLogger(level string, development bool) (*zap.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
