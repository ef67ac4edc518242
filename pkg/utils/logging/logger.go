// Package logging builds the console logger and passes it through
// context.Context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"github.com/m-mizutani/clog"
)

type ctxLoggerKey struct{}

var fallback atomic.Pointer[slog.Logger]

func init() {
	fallback.Store(New("info", os.Stderr))
}

var levels = map[string]slog.Level{
	"":        slog.LevelInfo,
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// New returns a logger writing colored console lines to w, or to stderr
// when w is nil. Level names are case-insensitive; an unknown name logs a
// warning and falls back to info.
func New(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, known := levels[strings.ToLower(strings.TrimSpace(level))]
	if !known {
		lvl = slog.LevelInfo
	}

	logger := slog.New(clog.New(
		clog.WithWriter(w),
		clog.WithLevel(lvl),
		clog.WithTimeFmt("15:04:05.000"),
		clog.WithSource(false),
		clog.WithAttrHook(clog.GoerrHook),
	))
	if !known {
		logger.Warn("unknown log level, using info", "level", level)
	}
	return logger
}

// Default is the logger used when a context carries none.
func Default() *slog.Logger { return fallback.Load() }

func SetDefault(logger *slog.Logger) { fallback.Store(logger) }

func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

// WithAttrs returns a context whose logger adds args to every record.
func WithAttrs(ctx context.Context, args ...any) context.Context {
	return With(ctx, From(ctx).With(args...))
}

func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return Default()
}
