package engine

import (
	"context"
	"log/slog"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/observability"
	"github.com/werkbank-ai/werkbank/pkg/provider"
	"github.com/werkbank-ai/werkbank/pkg/sandbox"
	"github.com/werkbank-ai/werkbank/pkg/tools"
)

// runLoop drives the think/act cycle until the model answers without
// tool calls or the round bound is hit. Every turn it produces is
// appended to the session as it happens, so the history the next
// inference call sees is always the session's own record. The bool
// return reports whether the run stopped at the round bound.
func (e *Engine) runLoop(ctx context.Context, sessionID string, runner *sandbox.Runner) ([]api.Turn, bool, error) {
	registry := tools.NewRegistry(e.static...)
	registry.Register(tools.NewCodeExecutor(runner))
	defs := registry.Definitions()

	var newTurns []api.Turn
	maxRounds := e.cfg.maxRounds()

	for round := 0; round < maxRounds; round++ {
		if ctx.Err() != nil {
			return nil, false, api.NewServerError("request cancelled: " + ctx.Err().Error())
		}

		history, err := e.sessions.History(ctx, sessionID)
		if err != nil {
			return nil, false, api.NewServerError("load history: " + err.Error())
		}

		reply, err := e.complete(ctx, &provider.Request{
			Instructions: e.cfg.instructions(),
			History:      history,
			Tools:        defs,
			Temperature:  e.cfg.Temperature,
		})
		if err != nil {
			// Inference failures are loop-fatal, unlike tool failures.
			return nil, false, err
		}

		assistantTurn := reply.Turn
		if err := e.sessions.AppendTurns(ctx, sessionID, assistantTurn); err != nil {
			return nil, false, api.NewServerError("append assistant turn: " + err.Error())
		}
		newTurns = append(newTurns, assistantTurn)

		if len(assistantTurn.ToolCalls) == 0 {
			observability.LoopRounds.Observe(float64(round + 1))
			return newTurns, false, nil
		}

		// Dispatch sequentially in the order the model gave: later calls
		// may depend on earlier calls' effects on the shared sandbox.
		for _, call := range assistantTurn.ToolCalls {
			result, err := registry.Execute(ctx, tools.ToolCall{
				ID:        call.ID,
				Name:      call.Name,
				Arguments: call.Arguments,
			})
			if err != nil {
				result = &tools.ToolResult{
					CallID:  call.ID,
					Output:  "tool execution failed: " + err.Error(),
					IsError: true,
				}
			}

			toolTurn := api.Turn{
				Role:    api.RoleTool,
				CallID:  result.CallID,
				Content: result.Output,
				Raw:     result.Raw,
			}
			if err := e.sessions.AppendTurns(ctx, sessionID, toolTurn); err != nil {
				return nil, false, api.NewServerError("append tool turn: " + err.Error())
			}
			newTurns = append(newTurns, toolTurn)
		}
	}

	observability.LoopRounds.Observe(float64(maxRounds))
	slog.Warn("loop round bound reached", "session_id", sessionID, "max_rounds", maxRounds)
	return newTurns, true, nil
}
