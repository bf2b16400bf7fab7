// Package logger is the zap setup shared by the binaries. Package-level
// helpers log through the process default and add the request, tenant and
// user found in the context.
package logger

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "oficina/internal/core/context"
	"oficina/internal/core/tenant"
)

// Logger is a sugared zap logger.
type Logger struct {
	*zap.SugaredLogger
}

// Config selects the level and the encoder. Development switches to the
// colored console encoder.
type Config struct {
	Level       string
	Development bool
}

// New builds a logger. An unparsable level falls back to info.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	zl, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{zl.Sugar()}, nil
}

var (
	current     atomic.Pointer[Logger]
	fallback    *Logger
	fallbackSet sync.Once
)

// SetDefault makes l the logger behind Default and the package helpers.
func SetDefault(l *Logger) {
	current.Store(l)
}

// Default returns the logger set by SetDefault, or a production logger.
func Default() *Logger {
	if l := current.Load(); l != nil {
		return l
	}
	fallbackSet.Do(func() {
		zl, err := zap.NewProduction(zap.AddCallerSkip(1))
		if err != nil {
			zl = zap.NewNop()
		}
		fallback = &Logger{zl.Sugar()}
	})
	return fallback
}

// WithContext returns l annotated with the request trace, tenant and user.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	var fields []any
	if rt, ok := appctx.RequestTraceFrom(ctx); ok {
		fields = append(fields, rt.LogFields()...)
	}
	if tenantID := tenant.GetTenantID(ctx); tenantID != "" {
		fields = append(fields, "tenant_id", tenantID)
	}
	if user := appctx.GetUser(ctx); user != nil {
		fields = append(fields, "user_id", user.UserID.String())
	}
	if len(fields) == 0 {
		return l
	}
	return &Logger{l.SugaredLogger.With(fields...)}
}

// With adds key-value pairs.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{l.SugaredLogger.With(keysAndValues...)}
}

// WithComponent tags entries with the emitting component.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

func Debug(ctx context.Context, msg string, keysAndValues ...any) {
	Default().WithContext(ctx).Debugw(msg, keysAndValues...)
}

func Info(ctx context.Context, msg string, keysAndValues ...any) {
	Default().WithContext(ctx).Infow(msg, keysAndValues...)
}

func Warn(ctx context.Context, msg string, keysAndValues ...any) {
	Default().WithContext(ctx).Warnw(msg, keysAndValues...)
}

func Error(ctx context.Context, msg string, keysAndValues ...any) {
	Default().WithContext(ctx).Errorw(msg, keysAndValues...)
}
