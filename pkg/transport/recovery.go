package transport

import (
	"context"
	"fmt"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/engine"
)

// Recovery returns middleware that catches panics in the handler and
// converts them to server error responses. The server continues to
// accept new requests after a panic is recovered.
func Recovery() Middleware {
	return func(next AgentRunner) AgentRunner {
		return RunnerFunc(func(ctx context.Context, sessionID, prompt string) (result *engine.RunResult, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					result = nil
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.Run(ctx, sessionID, prompt)
		})
	}
}
