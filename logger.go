package workerpool

import (
	"context"
	"fmt"
	"log/slog"
)

type slogLogger struct {
	l *slog.Logger
}

var (
	_ Logger = &slogLogger{}
	_ Logger = &nopLogger{}
)

// NewSlogLogger 基于 slog 的日志实现, l 为 nil 时使用 slog.Default()
func NewSlogLogger(l *slog.Logger) *slogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &slogLogger{l: l}
}

func (l *slogLogger) Debug(ctx context.Context, format string, args ...any) {
	l.log(ctx, slog.LevelDebug, format, args...)
}

func (l *slogLogger) Info(ctx context.Context, format string, args ...any) {
	l.log(ctx, slog.LevelInfo, format, args...)
}

func (l *slogLogger) Warn(ctx context.Context, format string, args ...any) {
	l.log(ctx, slog.LevelWarn, format, args...)
}

func (l *slogLogger) log(ctx context.Context, level slog.Level, format string, args ...any) {
	if !l.l.Enabled(ctx, level) {
		return
	}
	l.l.Log(ctx, level, fmt.Sprintf(format, args...))
}

type nopLogger struct{}

func (l *nopLogger) Debug(ctx context.Context, format string, args ...any) {}

func (l *nopLogger) Info(ctx context.Context, format string, args ...any) {
	// No operation logger does nothing
}

func (l *nopLogger) Warn(ctx context.Context, format string, args ...any) {}

func NewNopLogger() *nopLogger {
	return &nopLogger{}
}
