// Package http serves the agent API over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/engine"
	"github.com/werkbank-ai/werkbank/pkg/files"
	"github.com/werkbank-ai/werkbank/pkg/transport"
)

// Adapter routes agent API requests to the runner and session manager
// and serializes responses.
type Adapter struct {
	runner   transport.AgentRunner
	sessions transport.SessionManager
	uploads  *files.Staging
	mux      *http.ServeMux
	config   Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	Addr          string
	MaxBodySize   int64
	MaxUploadSize int64
	MetricsPath   string // empty disables the metrics endpoint
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8080",
		MaxBodySize:   1 << 20,  // 1 MB
		MaxUploadSize: 50 << 20, // 50 MB
		MetricsPath:   "/metrics",
	}
}

// RunRequest is the body of POST /run.
type RunRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Prompt    string `json:"prompt"`
}

// RunResponse is the body of a successful POST /run.
type RunResponse struct {
	SessionID  string                 `json:"session_id"`
	Incomplete bool                   `json:"incomplete,omitempty"`
	Messages   []engine.ProcessedTurn `json:"messages"`
}

// ClearRequest is the body of POST /clear.
type ClearRequest struct {
	SessionID string `json:"session_id"`
}

// ClearResponse is the body of a successful POST /clear.
type ClearResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// UploadedFile describes one stored upload in an upload response. Path
// is the location the file will have inside the sandbox workspace, not
// the server-local staging path.
type UploadedFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// UploadResponse is the body of a successful POST /upload.
type UploadResponse struct {
	Success bool           `json:"success"`
	Files   []UploadedFile `json:"files"`
}

// NewAdapter creates an HTTP adapter. The upload staging area is
// optional; when nil, POST /upload reports the operation as unavailable.
// Middleware is applied to the runner in the given order.
func NewAdapter(runner transport.AgentRunner, sessions transport.SessionManager, uploads *files.Staging, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		runner = transport.Chain(middlewares...)(runner)
	}

	a := &Adapter{
		runner:   runner,
		sessions: sessions,
		uploads:  uploads,
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("POST /run", a.handleRun)
	a.mux.HandleFunc("POST /clear", a.handleClear)
	a.mux.HandleFunc("POST /upload", a.handleUpload)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)
	if cfg.MetricsPath != "" {
		a.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}

	return a
}

// Handler returns the http.Handler for this adapter. The returned
// handler includes HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	return httpRequestIDMiddleware(a.mux)
}

// httpRequestIDMiddleware propagates the X-Request-ID header into the
// request context and echoes it on the response.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Request-ID"); id != "" {
			r = r.WithContext(transport.ContextWithRequestID(r.Context(), id))
			w.Header().Set("X-Request-ID", id)
		}
		next.ServeHTTP(w, r)
	})
}

// decodeJSON decodes a JSON request body with size limiting. It writes
// the error response itself and reports whether decoding succeeded.
func (a *Adapter) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		transport.WriteErrorResponse(w,
			api.NewValidationError("content_type", "Content-Type must be application/json"),
			http.StatusUnsupportedMediaType,
		)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewValidationError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteAgentError(w, api.NewValidationError("body", "invalid JSON: "+err.Error()))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleRun handles POST /run.
func (a *Adapter) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		transport.WriteAgentError(w, api.NewValidationError("prompt", "prompt is required"))
		return
	}

	result, err := a.runner.Run(r.Context(), req.SessionID, req.Prompt)
	if err != nil {
		transport.WriteError(w, err)
		return
	}

	writeJSON(w, RunResponse{
		SessionID:  result.SessionID,
		Incomplete: result.Incomplete,
		Messages:   result.Messages,
	})
}

// handleClear handles POST /clear. Clearing an unknown session succeeds;
// the result is the same either way.
func (a *Adapter) handleClear(w http.ResponseWriter, r *http.Request) {
	var req ClearRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	if req.SessionID == "" {
		transport.WriteAgentError(w, api.NewValidationError("session_id", "session_id is required"))
		return
	}

	if err := a.sessions.Clear(r.Context(), req.SessionID); err != nil {
		transport.WriteError(w, err)
		return
	}

	writeJSON(w, ClearResponse{
		Status:  "success",
		Message: "session " + req.SessionID + " cleared",
	})
}

// handleUpload handles POST /upload. Files arrive as multipart form
// data under the "files" field, with the target session in "session_id".
func (a *Adapter) handleUpload(w http.ResponseWriter, r *http.Request) {
	if a.uploads == nil {
		transport.WriteErrorResponse(w,
			api.NewValidationError("", "file upload is not available (no staging area configured)"),
			http.StatusNotImplemented,
		)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxUploadSize)
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewValidationError("body", fmt.Sprintf("upload too large (max %d bytes)", a.config.MaxUploadSize)),
				http.StatusRequestEntityTooLarge,
			)
			return
		}
		transport.WriteAgentError(w, api.NewValidationError("body", "invalid multipart form: "+err.Error()))
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		transport.WriteAgentError(w, api.NewValidationError("session_id", "session_id is required"))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		transport.WriteAgentError(w, api.NewValidationError("files", "at least one file is required"))
		return
	}

	var refs []api.FileRef
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			a.uploads.Remove(refs)
			transport.WriteError(w, api.NewServerError("reading upload "+hdr.Filename+": "+err.Error()))
			return
		}
		ref, err := a.uploads.Store(hdr.Filename, f)
		f.Close()
		if err != nil {
			a.uploads.Remove(refs)
			transport.WriteError(w, err)
			return
		}
		refs = append(refs, ref)
	}

	if err := a.sessions.AddFiles(r.Context(), sessionID, refs); err != nil {
		a.uploads.Remove(refs)
		transport.WriteError(w, err)
		return
	}

	resp := UploadResponse{Success: true}
	for _, ref := range refs {
		resp.Files = append(resp.Files, UploadedFile{
			ID:   ref.ID,
			Name: ref.Name,
			Path: path.Join("/workspace", ref.Name),
			Type: ref.Type,
			Size: ref.Size,
		})
	}
	writeJSON(w, resp)
}

// handleHealth handles GET /healthz.
func (a *Adapter) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
