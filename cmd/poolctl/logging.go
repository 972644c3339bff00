package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志文件滚动参数
const (
	logMaxSizeMB  = 50
	logMaxBackups = 5
	logMaxAgeDays = 7
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// newLogger 创建 slog 日志器。
// path 为空时写入 fallback (通常是 stderr),否则写入按大小滚动的日志文件。
// 返回的 io.Closer 需要在退出前调用以刷新并关闭文件。
func newLogger(path, level string, fallback io.Writer) (*slog.Logger, io.Closer, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	if path == "" {
		if fallback == nil {
			fallback = os.Stderr
		}
		h := slog.NewTextHandler(fallback, &slog.HandlerOptions{Level: lvl})
		return slog.New(h), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, errors.Wrapf(err, "create log directory for %s", path)
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		Compress:   true,
		LocalTime:  true,
	}
	h := slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: lvl})
	return slog.New(h), rotator, nil
}
