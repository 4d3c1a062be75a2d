package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/observability"
)

// Registry routes tool calls to the executor that handles the named tool.
// It records metrics and recovers from executor panics so a misbehaving
// tool cannot take down the request.
//
// Registries are cheap: the engine composes a fresh one per request from
// the static executors plus the request-scoped code executor. Closing a
// registry closes its executors, so only the owner of the executors'
// lifetime should call Close.
type Registry struct {
	executors []ToolExecutor
}

// NewRegistry creates a registry over the given executors. Name conflicts
// resolve first-registered-wins at lookup time.
func NewRegistry(executors ...ToolExecutor) *Registry {
	return &Registry{executors: executors}
}

// Register appends an executor to the registry.
func (r *Registry) Register(e ToolExecutor) {
	r.executors = append(r.executors, e)
}

// Definitions returns the merged tool definitions from all executors, in
// registration order.
func (r *Registry) Definitions() []api.ToolDefinition {
	var defs []api.ToolDefinition
	seen := make(map[string]bool)
	for _, e := range r.executors {
		for _, d := range e.Definitions() {
			if seen[d.Name] {
				slog.Warn("duplicate tool name, keeping first definition", "tool", d.Name)
				continue
			}
			seen[d.Name] = true
			defs = append(defs, d)
		}
	}
	return defs
}

// CanExecute reports whether any executor handles the named tool.
func (r *Registry) CanExecute(toolName string) bool {
	for _, e := range r.executors {
		if e.CanExecute(toolName) {
			return true
		}
	}
	return false
}

// Execute routes the call to the first executor claiming the tool name.
// An unknown tool and an executor panic both come back as error results,
// never as errors: the loop feeds them to the model as observations.
func (r *Registry) Execute(ctx context.Context, call ToolCall) (result *ToolResult, err error) {
	var target ToolExecutor
	for _, e := range r.executors {
		if e.CanExecute(call.Name) {
			target = e
			break
		}
	}
	if target == nil {
		observability.ToolExecutionsTotal.WithLabelValues(call.Name, "unknown").Inc()
		return &ToolResult{
			CallID:  call.ID,
			Output:  fmt.Sprintf("no executor handles tool %q", call.Name),
			IsError: true,
		}, nil
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool executor panicked", "tool", call.Name, "panic", rec)
			result = &ToolResult{
				CallID:  call.ID,
				Output:  fmt.Sprintf("internal error: tool %q panicked", call.Name),
				IsError: true,
			}
			err = nil
			observability.ToolExecutionsTotal.WithLabelValues(call.Name, "panic").Inc()
		}
	}()

	result, err = target.Execute(ctx, call)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case result != nil && result.IsError:
		status = "tool_error"
	}
	observability.ToolExecutionsTotal.WithLabelValues(call.Name, status).Inc()
	slog.Debug("tool executed", "tool", call.Name, "status", status, "duration", time.Since(start))

	return result, err
}

// Close closes all executors, returning the last error encountered.
func (r *Registry) Close() error {
	var lastErr error
	for _, e := range r.executors {
		if err := e.Close(); err != nil {
			slog.Warn("failed to close tool executor", "error", err.Error())
			lastErr = err
		}
	}
	return lastErr
}
