// Package logging builds the process logger and carries it through
// context. Output is colored console lines via clog; goerr values attached
// to errors are expanded by the handler hook.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/m-mizutani/clog"
)

type ctxKey struct{}

var (
	mu            sync.RWMutex
	processLogger = New("info", os.Stderr)
)

// New builds a console logger at the given level. Accepted levels are
// debug, info, warn/warning and error (case-insensitive); anything else
// falls back to info. A nil writer means stderr. Logs go to stderr by
// default so interactive output on stdout stays clean.
func New(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lv := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	}

	handler := clog.New(
		clog.WithWriter(w),
		clog.WithLevel(lv),
		clog.WithTimeFmt("15:04:05"),
		clog.WithSource(false),
		clog.WithAttrHook(clog.GoerrHook),
	)
	return slog.New(handler)
}

// Default returns the process-wide logger
func Default() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return processLogger
}

// SetDefault replaces the process-wide logger
func SetDefault(l *slog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	processLogger = l
}

// With attaches a logger to the context
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger attached to the context, or the process default
// when none is attached
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return Default()
}
