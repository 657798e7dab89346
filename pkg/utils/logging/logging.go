package logging

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

type ctxLoggerKey struct{}

var (
	defaultLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	loggerMutex   sync.RWMutex
)

// Default returns the process-wide logger configured by the CLI.
func Default() *slog.Logger {
	loggerMutex.RLock()
	defer loggerMutex.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger.
func SetDefault(logger *slog.Logger) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	defaultLogger = logger
}

// With returns a context carrying logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

// From returns the logger stored in ctx, or the default logger.
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxLoggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return Default()
}
