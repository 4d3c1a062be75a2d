// Command sandbox-server runs the HTTP execution service inside sandbox
// pods. It executes Python code in isolated subprocesses, stages input
// files into a shared workspace directory, and collects generated
// artifacts from the output directory after each run.
//
// Configuration:
//
//	SANDBOX_PORT           - Listen port (default: 8080)
//	SANDBOX_WORKSPACE      - Workspace directory for staged files (default: /workspace)
//	SANDBOX_MAX_CONCURRENT - Max concurrent executions (default: 3)
//	SANDBOX_PYTHON_INDEX   - Python package index URL (default: https://pypi.org/simple/)
//	SANDBOX_OUTPUT_DIR     - Output directory name within the exec dir (default: output)
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"syscall"
	"time"
)

func main() {
	port := envOr("SANDBOX_PORT", "8080")
	workspace := envOr("SANDBOX_WORKSPACE", "/workspace")
	maxConcurrent := envOrInt("SANDBOX_MAX_CONCURRENT", 3)
	pythonIndex := envOr("SANDBOX_PYTHON_INDEX", "https://pypi.org/simple/")
	outputDirName := envOr("SANDBOX_OUTPUT_DIR", "output")

	if _, err := exec.LookPath("python3"); err != nil {
		slog.Error("python3 not found in PATH")
		os.Exit(1)
	}
	if err := os.MkdirAll(workspace, 0755); err != nil {
		slog.Error("cannot create workspace", "dir", workspace, "error", err.Error())
		os.Exit(1)
	}

	srv := &sandboxServer{
		workspace:      workspace,
		runtimeVersion: pythonVersion(),
		maxConcurrent:  int32(maxConcurrent),
		pythonIndex:    pythonIndex,
		outputDirName:  outputDirName,
		startTime:      time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /execute", srv.handleExecute)
	mux.HandleFunc("POST /files", srv.handleFiles)
	mux.HandleFunc("GET /health", srv.handleHealth)

	httpSrv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second, // Long timeout for code execution.
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("sandbox server starting",
			"port", port,
			"workspace", workspace,
			"runtime", srv.runtimeVersion,
			"max_concurrent", maxConcurrent,
		)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)
}

// --- Server ---

type sandboxServer struct {
	workspace      string
	runtimeVersion string
	maxConcurrent  int32
	currentLoad    atomic.Int32
	pythonIndex    string
	outputDirName  string
	startTime      time.Time
}

// --- Execute handler ---

type executeRequest struct {
	Code           string   `json:"code"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	Requirements   []string `json:"requirements,omitempty"`
}

type executeError struct {
	Name      string `json:"name"`
	Message   string `json:"message"`
	Traceback string `json:"traceback,omitempty"`
}

type executeResponse struct {
	Status          string            `json:"status"`
	Stdout          string            `json:"stdout"`
	Stderr          string            `json:"stderr"`
	ExitCode        int               `json:"exit_code"`
	ExecutionTimeMs int64             `json:"execution_time_ms"`
	Error           *executeError     `json:"error,omitempty"`
	Artifacts       map[string]string `json:"artifacts,omitempty"`
}

func (s *sandboxServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	// Check capacity.
	current := s.currentLoad.Add(1)
	defer s.currentLoad.Add(-1)

	if current > s.maxConcurrent {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{
			"error": fmt.Sprintf("at capacity (%d/%d concurrent executions)", current, s.maxConcurrent),
		})
		return
	}

	var req executeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10*1024*1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}
	if req.TimeoutSeconds <= 0 {
		req.TimeoutSeconds = 60
	}

	codePreview := req.Code
	if len(codePreview) > 120 {
		codePreview = codePreview[:120] + "..."
	}
	slog.Info("execute request",
		"code", codePreview,
		"timeout", req.TimeoutSeconds,
		"requirements", len(req.Requirements),
	)

	// Per-execution scratch directory: script, installed packages, output.
	execDir, err := os.MkdirTemp("", "sandbox-exec-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create exec dir: "+err.Error())
		return
	}
	defer os.RemoveAll(execDir)

	outputDir := filepath.Join(execDir, s.outputDirName)
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create output dir: "+err.Error())
		return
	}

	if len(req.Requirements) > 0 {
		if installErr := s.installRequirements(r.Context(), execDir, req.Requirements, req.TimeoutSeconds); installErr != nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(executeResponse{
				Status:   "error",
				Stderr:   "package installation failed: " + installErr.Error(),
				ExitCode: -1,
				Error: &executeError{
					Name:    "InstallError",
					Message: installErr.Error(),
				},
			})
			return
		}
	}

	codePath := filepath.Join(execDir, "script.py")
	if err := os.WriteFile(codePath, []byte(req.Code), 0644); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write code: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(req.TimeoutSeconds)*time.Second)
	defer cancel()

	startTime := time.Now()
	cmd := exec.CommandContext(ctx, "python3", codePath)
	// Staged files live in the workspace; code addresses them by the
	// paths returned from POST /files.
	cmd.Dir = s.workspace
	cmd.Env = append(os.Environ(),
		"OUTPUT_DIR="+outputDir,
		"PYTHONPATH="+filepath.Join(execDir, ".pylibs"),
		"MPLBACKEND=Agg",
	)

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	execErr := cmd.Run()
	duration := time.Since(startTime)

	resp := executeResponse{
		Status:          "ok",
		Stdout:          stdoutBuf.String(),
		Stderr:          stderrBuf.String(),
		ExecutionTimeMs: duration.Milliseconds(),
	}
	if execErr != nil {
		resp.Status = "error"
		if ctx.Err() == context.DeadlineExceeded {
			resp.ExitCode = -1
			resp.Error = &executeError{
				Name:    "TimeoutError",
				Message: fmt.Sprintf("execution timed out after %d seconds", req.TimeoutSeconds),
			}
		} else {
			if exitErr, ok := execErr.(*exec.ExitError); ok {
				resp.ExitCode = exitErr.ExitCode()
			} else {
				resp.ExitCode = -1
			}
			resp.Error = parseTraceback(resp.Stderr)
		}
	}
	resp.Artifacts = collectArtifacts(outputDir)

	slog.Info("execute complete",
		"status", resp.Status,
		"exit_code", resp.ExitCode,
		"duration_ms", resp.ExecutionTimeMs,
		"stdout_len", len(resp.Stdout),
		"artifacts", len(resp.Artifacts),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// tracebackLineRe matches the final line of a Python traceback, e.g.
// "NameError: name 'x' is not defined" or "pandas.errors.ParserError: ...".
var tracebackLineRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*(?:Error|Exception|Exit|Interrupt|Warning))(?::\s?(.*))?$`)

// parseTraceback extracts the exception name and message from the last
// matching line of the interpreter's stderr. The full stderr is kept as
// the traceback.
func parseTraceback(stderr string) *executeError {
	lines := strings.Split(strings.TrimRight(stderr, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if m := tracebackLineRe.FindStringSubmatch(strings.TrimSpace(lines[i])); m != nil {
			return &executeError{
				Name:      m[1],
				Message:   m[2],
				Traceback: stderr,
			}
		}
	}
	return &executeError{
		Name:      "ExecutionError",
		Message:   "process exited with a non-zero status",
		Traceback: stderr,
	}
}

// installRequirements installs Python packages into a per-execution
// target directory with uv.
func (s *sandboxServer) installRequirements(ctx context.Context, execDir string, requirements []string, timeoutSecs int) error {
	installCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	targetDir := filepath.Join(execDir, ".pylibs")
	args := []string{"pip", "install", "--system", "--target", targetDir, "--index-url", s.pythonIndex}
	args = append(args, requirements...)

	cmd := exec.CommandContext(installCtx, "uv", args...)
	cmd.Dir = execDir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", err.Error(), string(output))
	}
	return nil
}

// collectArtifacts reads files from the output directory and encodes
// them as base64, keyed by filename.
func collectArtifacts(outputDir string) map[string]string {
	entries, err := os.ReadDir(outputDir)
	if err != nil || len(entries) == 0 {
		return nil
	}

	artifacts := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outputDir, entry.Name()))
		if err != nil {
			continue
		}
		artifacts[entry.Name()] = base64.StdEncoding.EncodeToString(content)
	}

	if len(artifacts) == 0 {
		return nil
	}
	return artifacts
}

// --- Files handler ---

type fileRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"` // base64
}

type fileResponse struct {
	Path string `json:"path"`
}

// handleFiles stages an uploaded file into the workspace. The returned
// path is stable for a given filename, so re-staging overwrites.
func (s *sandboxServer) handleFiles(w http.ResponseWriter, r *http.Request) {
	var req fileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 100*1024*1024)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid base64 content: "+err.Error())
		return
	}

	// Base strips path components to keep writes inside the workspace.
	path := filepath.Join(s.workspace, filepath.Base(req.Name))
	if err := os.WriteFile(path, content, 0644); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to write file: "+err.Error())
		return
	}

	slog.Info("file staged", "name", req.Name, "path", path, "size", len(content))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(fileResponse{Path: path})
}

// --- Health handler ---

type healthResponse struct {
	Status         string `json:"status"`
	RuntimeVersion string `json:"runtime_version"`
	Capacity       int    `json:"capacity"`
	CurrentLoad    int    `json:"current_load"`
	UptimeSecs     int64  `json:"uptime_seconds"`
}

func (s *sandboxServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:         "healthy",
		RuntimeVersion: s.runtimeVersion,
		Capacity:       int(s.maxConcurrent),
		CurrentLoad:    int(s.currentLoad.Load()),
		UptimeSecs:     int64(time.Since(s.startTime).Seconds()),
	})
}

// pythonVersion returns the interpreter version string.
func pythonVersion() string {
	output, err := exec.Command("python3", "--version").Output()
	if err != nil {
		return "unknown"
	}
	version := strings.TrimSpace(string(output))
	if idx := strings.Index(version, "\n"); idx > 0 {
		version = version[:idx]
	}
	return version
}

// --- Helpers ---

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return defaultVal
	}
	return n
}
