package transport

import (
	"context"
	"log/slog"
	"time"

	"github.com/werkbank-ai/werkbank/pkg/engine"
)

// Logging returns middleware that emits a structured log entry for each
// agent run: request ID, session ID, message count, duration, and the
// error when the run failed.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next AgentRunner) AgentRunner {
		return RunnerFunc(func(ctx context.Context, sessionID, prompt string) (*engine.RunResult, error) {
			start := time.Now()
			requestID := RequestIDFromContext(ctx)

			result, err := next.Run(ctx, sessionID, prompt)

			attrs := []slog.Attr{
				slog.String("request_id", requestID),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "run failed", attrs...)
				return nil, err
			}

			attrs = append(attrs,
				slog.String("session_id", result.SessionID),
				slog.Int("messages", len(result.Messages)),
				slog.Bool("incomplete", result.Incomplete),
			)
			logger.LogAttrs(ctx, slog.LevelInfo, "run completed", attrs...)
			return result, nil
		})
	}
}
