package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/werkbank-ai/werkbank/pkg/engine"
)

// RequestID returns middleware that assigns a unique request ID to each
// request. If the incoming request context already carries a request ID
// (set by the HTTP adapter from the X-Request-ID header), that value is
// used. Otherwise, a new unique ID is generated.
func RequestID() Middleware {
	return func(next AgentRunner) AgentRunner {
		return RunnerFunc(func(ctx context.Context, sessionID, prompt string) (*engine.RunResult, error) {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, generateRequestID())
			}
			return next.Run(ctx, sessionID, prompt)
		})
	}
}

func generateRequestID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
