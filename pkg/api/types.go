package api

import "encoding/json"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one entry in a session's conversation history. Assistant turns
// may carry tool call requests; tool turns carry the call ID they answer
// and, for code executions, the raw execution record for local
// post-processing. The raw record is never replayed to the inference
// backend; only Content is.
type Turn struct {
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	ToolCalls []ToolCallRequest `json:"tool_calls,omitempty"`
	CallID    string            `json:"call_id,omitempty"`
	Raw       *ExecutionResult  `json:"raw,omitempty"`
}

// ToolCallRequest is a model-issued request to invoke a named tool.
// Immutable once produced; the ID correlates the eventual result.
type ToolCallRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition describes a callable tool advertised to the model.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// FileRef describes a file uploaded into a session. Path is the local
// staging location; the sandbox-side path is derived from Name when the
// file is staged for execution.
type FileRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// ExecutionResult is the normalized outcome of one code submission to the
// sandbox. Error is an interpreter-level failure (syntax error, crashed
// kernel), distinct from a program writing to stderr. Artifacts reflect
// only the most recent execution, not cumulative sandbox state.
//
// Invariant: Error != nil implies Success == false.
type ExecutionResult struct {
	Success   bool       `json:"success"`
	Stdout    string     `json:"stdout"`
	Stderr    string     `json:"stderr"`
	Error     *ExecError `json:"error,omitempty"`
	Artifacts []Artifact `json:"artifacts,omitempty"`
}

// ExecError describes an interpreter-level execution failure.
type ExecError struct {
	Name      string `json:"name"`
	Message   string `json:"message"`
	Traceback string `json:"traceback,omitempty"`
}

// Artifact is a binary output produced by a code execution, typically an
// image written to the sandbox output directory. Data is base64-encoded
// in JSON via the []byte marshaling rules.
type Artifact struct {
	Kind   string `json:"kind"`
	Format string `json:"format"`
	Data   []byte `json:"data"`
}

// FailedExecution builds an ExecutionResult for an adapter-internal fault.
// Callers of the execution adapter never see raw errors; they see this.
func FailedExecution(name, message string) *ExecutionResult {
	return &ExecutionResult{
		Success: false,
		Error:   &ExecError{Name: name, Message: message},
	}
}

// Summary returns the model-facing rendering of the execution record:
// stdout, stderr, and error state, with artifact payloads elided for
// token economy. Always valid JSON.
func (r *ExecutionResult) Summary() string {
	type summary struct {
		Success   bool       `json:"success"`
		Stdout    string     `json:"stdout"`
		Stderr    string     `json:"stderr"`
		Error     *ExecError `json:"error,omitempty"`
		Artifacts int        `json:"artifacts,omitempty"`
	}
	data, err := json.MarshalIndent(summary{
		Success:   r.Success,
		Stdout:    r.Stdout,
		Stderr:    r.Stderr,
		Error:     r.Error,
		Artifacts: len(r.Artifacts),
	}, "", "  ")
	if err != nil {
		return `{"success":false,"error":{"name":"SummaryError"}}`
	}
	return string(data)
}
