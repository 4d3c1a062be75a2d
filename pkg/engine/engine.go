package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/observability"
	"github.com/werkbank-ai/werkbank/pkg/provider"
	"github.com/werkbank-ai/werkbank/pkg/sandbox"
	"github.com/werkbank-ai/werkbank/pkg/session"
	"github.com/werkbank-ai/werkbank/pkg/tools"
)

// Engine orchestrates one agent run per Run call. The provider, session
// store, and static executors are shared across requests; the sandbox
// runner is created per request and closed on every exit path.
type Engine struct {
	provider  provider.Provider
	sessions  session.Store
	newRunner func() *sandbox.Runner
	static    []tools.ToolExecutor
	cfg       Config
}

// New creates an Engine. newRunner is called once per request to obtain
// a fresh sandbox runner; static executors (MCP servers) are shared by
// all requests.
func New(p provider.Provider, sessions session.Store, newRunner func() *sandbox.Runner, cfg Config, static ...tools.ToolExecutor) *Engine {
	return &Engine{
		provider:  p,
		sessions:  sessions,
		newRunner: newRunner,
		static:    static,
		cfg:       cfg,
	}
}

// RunResult carries the turns produced by one agent run, already
// normalized for the response boundary.
type RunResult struct {
	SessionID string
	Messages  []ProcessedTurn

	// Incomplete is set when the run stopped at the round bound instead
	// of a final model answer.
	Incomplete bool
}

// Run executes one agent request: provision the sandbox, append the
// prompt to the session, drive the loop (or the file-aware path when
// the session has uploads), and return the new turns. Inference and
// sandbox provisioning failures abort the run; execution failures do
// not — they are fed back to the model.
func (e *Engine) Run(ctx context.Context, sessionID, prompt string) (*RunResult, error) {
	if sessionID == "" {
		sessionID = api.NewSessionID()
	}

	start := time.Now()
	result, err := e.run(ctx, sessionID, prompt)

	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RequestsTotal.WithLabelValues(status).Inc()
	observability.RequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		slog.Error("agent run failed", "session_id", sessionID, "error", err.Error())
		return nil, err
	}
	slog.Info("agent run completed",
		"session_id", sessionID,
		"messages", len(result.Messages),
		"duration", time.Since(start),
	)
	return result, nil
}

func (e *Engine) run(ctx context.Context, sessionID, prompt string) (*RunResult, error) {
	runner := e.newRunner()
	defer runner.Close()

	// Provision before committing anything to the session: a sandbox
	// that cannot start fails the whole request, and the history must
	// not record a prompt that was never acted on.
	if err := runner.Start(ctx); err != nil {
		return nil, err
	}

	userTurn := api.Turn{Role: api.RoleUser, Content: prompt}
	if err := e.sessions.AppendTurns(ctx, sessionID, userTurn); err != nil {
		return nil, api.NewServerError("append user turn: " + err.Error())
	}

	sessionFiles, err := e.sessions.ListFiles(ctx, sessionID)
	if err != nil {
		return nil, api.NewServerError("list session files: " + err.Error())
	}

	var newTurns []api.Turn
	incomplete := false
	if len(sessionFiles) > 0 {
		newTurns, err = e.runWithFiles(ctx, sessionID, prompt, sessionFiles, runner)
	} else {
		newTurns, incomplete, err = e.runLoop(ctx, sessionID, runner)
	}
	if err != nil {
		return nil, err
	}

	return &RunResult{
		SessionID:  sessionID,
		Messages:   Process(append([]api.Turn{userTurn}, newTurns...)),
		Incomplete: incomplete,
	}, nil
}

// complete calls the inference backend and records metrics.
func (e *Engine) complete(ctx context.Context, req *provider.Request) (*provider.Reply, error) {
	name := e.provider.Name()
	start := time.Now()

	reply, err := e.provider.Complete(ctx, req)
	observability.InferenceLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.InferenceRequestsTotal.WithLabelValues(name, "error").Inc()
		return nil, err
	}

	observability.InferenceRequestsTotal.WithLabelValues(name, "success").Inc()
	observability.InferenceTokensTotal.WithLabelValues(name, "input").Add(float64(reply.InputTokens))
	observability.InferenceTokensTotal.WithLabelValues(name, "output").Add(float64(reply.OutputTokens))
	return reply, nil
}

// Clear wipes the session's history and files.
func (e *Engine) Clear(ctx context.Context, sessionID string) error {
	return e.sessions.Clear(ctx, sessionID)
}

// AddFiles attaches uploaded files to the session.
func (e *Engine) AddFiles(ctx context.Context, sessionID string, refs []api.FileRef) error {
	return e.sessions.AddFiles(ctx, sessionID, refs)
}
