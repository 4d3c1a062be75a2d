package transport

import (
	"context"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/engine"
)

// AgentRunner handles the core run-prompt operation. The implementation
// receives the session ID (empty for a fresh session) and the user
// prompt, drives the agent loop to completion, and returns the processed
// conversation delta.
type AgentRunner interface {
	Run(ctx context.Context, sessionID, prompt string) (*engine.RunResult, error)
}

// RunnerFunc is an adapter that allows using an ordinary function as an
// AgentRunner.
type RunnerFunc func(ctx context.Context, sessionID, prompt string) (*engine.RunResult, error)

// Run calls f(ctx, sessionID, prompt).
func (f RunnerFunc) Run(ctx context.Context, sessionID, prompt string) (*engine.RunResult, error) {
	return f(ctx, sessionID, prompt)
}

// SessionManager handles session lifecycle operations outside the agent
// loop: clearing conversation state and registering uploaded files.
type SessionManager interface {
	Clear(ctx context.Context, sessionID string) error
	AddFiles(ctx context.Context, sessionID string, refs []api.FileRef) error
}
