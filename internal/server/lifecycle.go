package server

import (
	"context"
	"log/slog"
	"os"
	"runtime/debug"
	"time"
)

const maxBackoff = 5 * time.Minute

// RunWithRecovery runs fn in a loop, recovering from panics with
// exponential backoff. It stops when ctx is cancelled. Background
// workers (monitor loop, certificate renewal) run under it so a panic
// in one never takes the scan service down.
func RunWithRecovery(ctx context.Context, logger *slog.Logger, name string, fn func(ctx context.Context)) {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopped", "name", name, "reason", "context cancelled")
			return
		default:
		}

		panicked := runOnce(ctx, logger, name, fn)

		select {
		case <-ctx.Done():
			return
		default:
		}

		if !panicked {
			// fn returned cleanly while the context is still live;
			// restart it immediately and reset the backoff.
			backoff = time.Second
			continue
		}

		logger.Warn("worker restarting", "name", name, "backoff", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func runOnce(ctx context.Context, logger *slog.Logger, name string, fn func(ctx context.Context)) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			logger.Error("worker panicked",
				"name", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn(ctx)
	return false
}

// SetupLogger creates a structured slog.Logger with JSON output to stdout.
func SetupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler).With("service", "sightline")
}
