package sandbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/observability"
)

// Config holds settings for a Runner.
type Config struct {
	// ExecutionTimeout is the per-run wall clock limit in seconds
	// enforced by the sandbox (default 60).
	ExecutionTimeout int
}

func (c Config) executionTimeout() int {
	if c.ExecutionTimeout <= 0 {
		return 60
	}
	return c.ExecutionTimeout
}

// Runner owns one remote sandbox instance, scoped to a single request.
// Start is idempotent; Close is idempotent and must run on every exit
// path of the owning request. Run never returns an error: every fault is
// normalized into an ExecutionResult.
//
// A Runner is used from a single request goroutine and is not safe for
// concurrent use, except for Close which may race a cancellation path.
type Runner struct {
	acquirer Acquirer
	client   *Client
	cfg      Config

	mu         sync.Mutex
	sandboxURL string
	release    func()
	started    bool
	closed     bool

	// staged maps local file ID to remote path, making StageFiles
	// idempotent per file within one sandbox lifetime.
	staged map[string]string
}

// NewRunner creates a Runner. The sandbox is not provisioned until the
// first Start or Run call.
func NewRunner(acquirer Acquirer, client *Client, cfg Config) *Runner {
	if client == nil {
		client = NewClient()
	}
	return &Runner{
		acquirer: acquirer,
		client:   client,
		cfg:      cfg,
		staged:   make(map[string]string),
	}
}

// Start provisions the sandbox. Calling Start on an already started
// Runner is a no-op. A failure is a provisioning error, fatal for the
// current request; no retry happens at this layer.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startLocked(ctx)
}

func (r *Runner) startLocked(ctx context.Context) error {
	if r.closed {
		return api.NewProvisioningError("sandbox already closed")
	}
	if r.started {
		return nil
	}

	url, release, err := r.acquirer.Acquire(ctx)
	if err != nil {
		observability.SandboxAcquisitionsTotal.WithLabelValues("error").Inc()
		return api.NewProvisioningError(fmt.Sprintf("acquire sandbox: %s", err.Error()))
	}

	observability.SandboxAcquisitionsTotal.WithLabelValues("success").Inc()
	r.sandboxURL = url
	r.release = release
	r.started = true
	slog.Debug("sandbox started", "url", url)
	return nil
}

// StageFiles uploads the given files into the sandbox and returns their
// remote paths in the same order. Re-staging a file already staged in
// this sandbox lifetime returns its existing path without re-uploading.
// Remote paths are stable for a given filename.
func (r *Runner) StageFiles(ctx context.Context, files []api.FileRef) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.startLocked(ctx); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		if remote, ok := r.staged[f.ID]; ok {
			paths = append(paths, remote)
			continue
		}

		content, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("read local file %s: %w", f.Name, err)
		}
		remote, err := r.client.Stage(ctx, r.sandboxURL, f.Name, content)
		if err != nil {
			return nil, fmt.Errorf("stage file %s: %w", f.Name, err)
		}

		observability.SandboxStagedBytes.Add(float64(len(content)))
		r.staged[f.ID] = remote
		paths = append(paths, remote)
	}
	return paths, nil
}

// Run submits code to the sandbox and waits for completion. Faults while
// talking to the sandbox are converted into a failed ExecutionResult,
// never propagated: callers have one uniform way to react.
func (r *Runner) Run(ctx context.Context, code string, requirements []string) *api.ExecutionResult {
	r.mu.Lock()
	if err := r.startLocked(ctx); err != nil {
		r.mu.Unlock()
		return api.FailedExecution("ProvisioningError", err.Error())
	}
	url := r.sandboxURL
	r.mu.Unlock()

	resp, err := r.client.Execute(ctx, url, &execRequest{
		Code:           code,
		TimeoutSeconds: r.cfg.executionTimeout(),
		Requirements:   requirements,
	})
	if err != nil {
		slog.Warn("sandbox execution failed", "error", err.Error())
		observability.SandboxExecutionsTotal.WithLabelValues("transport_error").Inc()
		result := api.FailedExecution("SandboxError", err.Error())
		result.Stderr = err.Error()
		return result
	}

	result := &api.ExecutionResult{
		Success: resp.Status == "ok" && resp.Error == nil,
		Stdout:  resp.Stdout,
		Stderr:  resp.Stderr,
	}
	if resp.Error != nil {
		result.Error = &api.ExecError{
			Name:      resp.Error.Name,
			Message:   resp.Error.Message,
			Traceback: resp.Error.Traceback,
		}
	}
	result.Artifacts = decodeArtifacts(resp.Artifacts)

	status := "success"
	if !result.Success {
		status = "error"
	}
	observability.SandboxExecutionsTotal.WithLabelValues(status).Inc()
	return result
}

// Close tears down the sandbox. Idempotent: the second and later calls
// have no effect. Always called on all exit paths of the owning request
// so sandbox instances are never leaked.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if r.release != nil {
		r.release()
		r.release = nil
		slog.Debug("sandbox released", "url", r.sandboxURL)
	}
	return nil
}

// decodeArtifacts converts the sandbox artifact map into ordered image
// artifacts. Only recognized image formats are kept; the artifact set
// reflects this execution only. Filenames are sorted for deterministic
// ordering.
func decodeArtifacts(raw map[string]string) []api.Artifact {
	if len(raw) == 0 {
		return nil
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var artifacts []api.Artifact
	for _, name := range names {
		format, ok := imageFormat(name)
		if !ok {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(raw[name])
		if err != nil {
			slog.Warn("skipping undecodable artifact", "name", name, "error", err.Error())
			continue
		}
		artifacts = append(artifacts, api.Artifact{
			Kind:   "image",
			Format: format,
			Data:   data,
		})
	}
	return artifacts
}

// imageFormat maps a filename extension to an artifact format.
func imageFormat(name string) (string, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "png", true
	case ".jpg", ".jpeg":
		return "jpeg", true
	case ".svg":
		return "svg", true
	case ".gif":
		return "gif", true
	default:
		return "", false
	}
}
