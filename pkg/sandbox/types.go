package sandbox

// execRequest is the request body for POST /execute on the sandbox server.
type execRequest struct {
	Code           string   `json:"code"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	Requirements   []string `json:"requirements,omitempty"`
}

// execResponse is the response from POST /execute on the sandbox server.
// Artifacts maps output filenames to base64-encoded content, collected
// from the sandbox output directory after the run. Error is set for
// interpreter-level failures, distinct from stderr output.
type execResponse struct {
	Status          string            `json:"status"`
	Stdout          string            `json:"stdout"`
	Stderr          string            `json:"stderr"`
	ExitCode        int               `json:"exit_code"`
	ExecutionTimeMs int64             `json:"execution_time_ms"`
	Error           *execError        `json:"error,omitempty"`
	Artifacts       map[string]string `json:"artifacts,omitempty"`
}

type execError struct {
	Name      string `json:"name"`
	Message   string `json:"message"`
	Traceback string `json:"traceback,omitempty"`
}

// stageRequest is the request body for POST /files on the sandbox server.
// Content is base64-encoded.
type stageRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// stageResponse is the response from POST /files, carrying the absolute
// path the file landed at inside the sandbox.
type stageResponse struct {
	Path string `json:"path"`
}
