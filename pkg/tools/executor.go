package tools

import (
	"context"

	"github.com/werkbank-ai/werkbank/pkg/api"
)

// ToolKind classifies how a tool is hosted and executed.
type ToolKind int

const (
	// ToolKindCode is the built-in code execution tool. Calls run inside
	// a remote sandbox scoped to the current request.
	ToolKindCode ToolKind = iota

	// ToolKindMCP is a tool connected via the Model Context Protocol.
	// The engine connects to the MCP server and executes the tool
	// server-side within the loop.
	ToolKindMCP
)

// ToolExecutor executes tool calls for one or more named tools.
type ToolExecutor interface {
	// Kind returns the type of tools this executor handles.
	Kind() ToolKind

	// Definitions returns the tool definitions this executor advertises
	// to the model.
	Definitions() []api.ToolDefinition

	// CanExecute checks if this executor handles the given tool name.
	CanExecute(toolName string) bool

	// Execute runs the tool and returns the result. Executors report
	// tool-level failures through ToolResult.IsError, not through the
	// error return; a non-nil error means the executor itself broke.
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)

	// Close releases resources held by the executor.
	Close() error
}

// ToolCall represents a model's request to invoke a tool.
type ToolCall struct {
	// ID is the unique call identifier minted by the model.
	ID string

	// Name is the tool name.
	Name string

	// Arguments is the JSON-encoded arguments string.
	Arguments string
}

// ToolResult represents the output of a tool execution.
type ToolResult struct {
	// CallID matches the originating ToolCall.ID.
	CallID string

	// Output is the text fed back to the model as the tool observation.
	// For code executions this is a compact summary with artifact
	// payloads elided.
	Output string

	// IsError indicates that the output describes a failure.
	IsError bool

	// Raw carries the full execution result for code tool calls so the
	// response assembly can render stdout, stderr, and artifacts without
	// round-tripping them through the model. Nil for other tools.
	Raw *api.ExecutionResult
}
