package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/sandbox"
)

// CodeToolName is the name the code execution tool is advertised under.
const CodeToolName = "execute_code"

// codeToolSchema is the JSON schema for the code tool's arguments.
var codeToolSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"code": {
			"type": "string",
			"description": "Python code to execute."
		},
		"requirements": {
			"type": "array",
			"items": {"type": "string"},
			"description": "Additional pip packages to install before execution."
		}
	},
	"required": ["code"]
}`)

// CodeExecutor runs the execute_code tool against a sandbox Runner. It is
// request-scoped: successive calls within one request hit the same
// sandbox, so files and variables written by one call are visible to the
// next. The engine owns the runner's lifetime; Close here is a no-op.
type CodeExecutor struct {
	runner *sandbox.Runner
}

var _ ToolExecutor = (*CodeExecutor)(nil)

// NewCodeExecutor creates a CodeExecutor over the given runner.
func NewCodeExecutor(runner *sandbox.Runner) *CodeExecutor {
	return &CodeExecutor{runner: runner}
}

func (e *CodeExecutor) Kind() ToolKind {
	return ToolKindCode
}

func (e *CodeExecutor) Definitions() []api.ToolDefinition {
	return []api.ToolDefinition{
		{
			Name:        CodeToolName,
			Description: "Execute Python code in a sandboxed interpreter and return outputs (plots, stdout, stderr). Save plots and other files into os.environ[\"OUTPUT_DIR\"] to return them. State persists between calls within one request.",
			Parameters:  codeToolSchema,
		},
	}
}

func (e *CodeExecutor) CanExecute(toolName string) bool {
	return toolName == CodeToolName
}

// codeArguments is the decoded argument payload for execute_code.
type codeArguments struct {
	Code         string   `json:"code"`
	Requirements []string `json:"requirements"`
}

// Execute runs the submitted code in the sandbox. Sandbox faults surface
// as failed results in Output, never as errors, so the model can react to
// them like any other execution failure.
func (e *CodeExecutor) Execute(ctx context.Context, call ToolCall) (*ToolResult, error) {
	var args codeArguments
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return &ToolResult{
			CallID:  call.ID,
			Output:  fmt.Sprintf("invalid arguments for %s: %v", CodeToolName, err),
			IsError: true,
		}, nil
	}
	if strings.TrimSpace(args.Code) == "" {
		return &ToolResult{
			CallID:  call.ID,
			Output:  "missing required argument: code",
			IsError: true,
		}, nil
	}

	result := e.runner.Run(ctx, args.Code, args.Requirements)
	return &ToolResult{
		CallID:  call.ID,
		Output:  result.Summary(),
		IsError: !result.Success,
		Raw:     result,
	}, nil
}

// Close is a no-op: the engine owns the runner and closes it on every
// request exit path.
func (e *CodeExecutor) Close() error {
	return nil
}
