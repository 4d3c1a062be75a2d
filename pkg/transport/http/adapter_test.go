package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/engine"
	"github.com/werkbank-ai/werkbank/pkg/files"
)

// mockRunner is a configurable AgentRunner for adapter tests.
type mockRunner struct {
	result    *engine.RunResult
	err       error
	sessionID string
	prompt    string
}

func (m *mockRunner) Run(_ context.Context, sessionID, prompt string) (*engine.RunResult, error) {
	m.sessionID = sessionID
	m.prompt = prompt
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockSessions records session manager calls.
type mockSessions struct {
	cleared []string
	added   map[string][]api.FileRef
	err     error
}

func (m *mockSessions) Clear(_ context.Context, sessionID string) error {
	if m.err != nil {
		return m.err
	}
	m.cleared = append(m.cleared, sessionID)
	return nil
}

func (m *mockSessions) AddFiles(_ context.Context, sessionID string, refs []api.FileRef) error {
	if m.err != nil {
		return m.err
	}
	if m.added == nil {
		m.added = make(map[string][]api.FileRef)
	}
	m.added[sessionID] = append(m.added[sessionID], refs...)
	return nil
}

func newTestAdapter(t *testing.T, runner *mockRunner, sessions *mockSessions) (*Adapter, *files.Staging) {
	t.Helper()
	staging, err := files.NewStaging(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewAdapter(runner, sessions, staging, DefaultConfig()), staging
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRunEndpoint(t *testing.T) {
	runner := &mockRunner{
		result: &engine.RunResult{
			SessionID: "sess_1",
			Messages: []engine.ProcessedTurn{
				{Role: api.RoleUser, Content: "hi"},
				{Role: api.RoleAssistant, Content: "hello"},
			},
		},
	}
	a, _ := newTestAdapter(t, runner, &mockSessions{})

	rec := postJSON(t, a.Handler(), "/run", RunRequest{Prompt: "hi"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp RunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.SessionID != "sess_1" || len(resp.Messages) != 2 {
		t.Errorf("response = %+v", resp)
	}
	if runner.prompt != "hi" {
		t.Errorf("runner saw prompt %q", runner.prompt)
	}
}

func TestRunEndpointRequiresPrompt(t *testing.T) {
	a, _ := newTestAdapter(t, &mockRunner{}, &mockSessions{})

	rec := postJSON(t, a.Handler(), "/run", RunRequest{Prompt: "   "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body api.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error == nil || body.Error.Param != "prompt" {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestRunEndpointInvalidJSON(t *testing.T) {
	a, _ := newTestAdapter(t, &mockRunner{}, &mockSessions{})

	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRunEndpointMapsAgentErrors(t *testing.T) {
	runner := &mockRunner{err: api.NewInferenceError("backend unreachable")}
	a, _ := newTestAdapter(t, runner, &mockSessions{})

	rec := postJSON(t, a.Handler(), "/run", RunRequest{Prompt: "x"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body api.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error == nil || body.Error.Type != api.ErrorTypeInference {
		t.Errorf("error = %+v", body.Error)
	}
}

func TestClearEndpoint(t *testing.T) {
	sessions := &mockSessions{}
	a, _ := newTestAdapter(t, &mockRunner{}, sessions)

	rec := postJSON(t, a.Handler(), "/clear", ClearRequest{SessionID: "sess_c"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp ClearResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "success" {
		t.Errorf("status = %q", resp.Status)
	}
	if len(sessions.cleared) != 1 || sessions.cleared[0] != "sess_c" {
		t.Errorf("cleared = %v", sessions.cleared)
	}
}

func TestClearEndpointRequiresSessionID(t *testing.T) {
	a, _ := newTestAdapter(t, &mockRunner{}, &mockSessions{})

	rec := postJSON(t, a.Handler(), "/clear", ClearRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func multipartUpload(t *testing.T, sessionID string, filenames map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if sessionID != "" {
		mw.WriteField("session_id", sessionID)
	}
	for name, content := range filenames {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadEndpoint(t *testing.T) {
	sessions := &mockSessions{}
	a, staging := newTestAdapter(t, &mockRunner{}, sessions)

	body, ct := multipartUpload(t, "sess_u", map[string]string{"sales.csv": "a,b\n1,2\n"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var resp UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || len(resp.Files) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	f := resp.Files[0]
	if f.Name != "sales.csv" || f.Type != files.TypeTabular || f.Size != 8 {
		t.Errorf("file = %+v", f)
	}
	if f.Path != "/workspace/sales.csv" {
		t.Errorf("path = %q, want the workspace path", f.Path)
	}
	if strings.Contains(f.Path, staging.Dir()) {
		t.Error("response must not leak the local staging path")
	}

	// The file is registered with the session and staged on disk.
	refs := sessions.added["sess_u"]
	if len(refs) != 1 || refs[0].Name != "sales.csv" {
		t.Fatalf("session refs = %+v", refs)
	}
	if _, err := os.Stat(refs[0].Path); err != nil {
		t.Errorf("staged file missing: %v", err)
	}
}

func TestUploadEndpointRequiresSessionID(t *testing.T) {
	a, _ := newTestAdapter(t, &mockRunner{}, &mockSessions{})

	body, ct := multipartUpload(t, "", map[string]string{"x.txt": "y"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadEndpointRequiresFiles(t *testing.T) {
	a, _ := newTestAdapter(t, &mockRunner{}, &mockSessions{})

	body, ct := multipartUpload(t, "sess_u", nil)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadEndpointWithoutStaging(t *testing.T) {
	a := NewAdapter(&mockRunner{}, &mockSessions{}, nil, DefaultConfig())

	body, ct := multipartUpload(t, "sess_u", map[string]string{"x.txt": "y"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	a, _ := newTestAdapter(t, &mockRunner{}, &mockSessions{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a, _ := newTestAdapter(t, &mockRunner{}, &mockSessions{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected Prometheus exposition output")
	}
}

func TestRequestIDEcho(t *testing.T) {
	a, _ := newTestAdapter(t, &mockRunner{result: &engine.RunResult{SessionID: "s"}}, &mockSessions{})

	data, _ := json.Marshal(RunRequest{Prompt: "x"})
	req := httptest.NewRequest(http.MethodPost, "/run", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}
}
