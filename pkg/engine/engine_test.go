package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/provider"
	"github.com/werkbank-ai/werkbank/pkg/sandbox"
	"github.com/werkbank-ai/werkbank/pkg/session"
)

// scriptedProvider returns canned replies in order and records the
// requests it saw.
type scriptedProvider struct {
	replies  []provider.Reply
	requests []*provider.Request
	err      error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, req *provider.Request) (*provider.Reply, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	if len(p.requests) > len(p.replies) {
		last := p.replies[len(p.replies)-1]
		return &last, nil
	}
	reply := p.replies[len(p.requests)-1]
	return &reply, nil
}

func (p *scriptedProvider) Close() error { return nil }

// sandboxRecorder is an httptest sandbox server with scripted execute
// responses.
type sandboxRecorder struct {
	execResponses []map[string]any
	execCodes     []string
	stagedNames   []string
}

func (f *sandboxRecorder) start(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /execute", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code string `json:"code"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.execCodes = append(f.execCodes, req.Code)
		resp := map[string]any{"status": "ok"}
		if len(f.execResponses) > 0 {
			resp = f.execResponses[0]
			if len(f.execResponses) > 1 {
				f.execResponses = f.execResponses[1:]
			}
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("POST /files", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		f.stagedNames = append(f.stagedNames, req.Name)
		json.NewEncoder(w).Encode(map[string]string{"path": "/workspace/" + req.Name})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func newTestEngine(t *testing.T, p provider.Provider, fake *sandboxRecorder, cfg Config) (*Engine, session.Store) {
	t.Helper()
	url := fake.start(t)
	store := session.NewMemoryStore(0)
	newRunner := func() *sandbox.Runner {
		return sandbox.NewRunner(&sandbox.StaticAcquirer{URL: url}, sandbox.NewClient(), sandbox.Config{})
	}
	return New(p, store, newRunner, cfg), store
}

func toolCallReply(callID, code string) provider.Reply {
	args, _ := json.Marshal(map[string]string{"code": code})
	return provider.Reply{
		Turn: api.Turn{
			Role: api.RoleAssistant,
			ToolCalls: []api.ToolCallRequest{
				{ID: callID, Name: "execute_code", Arguments: string(args)},
			},
		},
	}
}

func textReply(content string) provider.Reply {
	return provider.Reply{
		Turn: api.Turn{Role: api.RoleAssistant, Content: content},
	}
}

func TestRunSingleToolRound(t *testing.T) {
	p := &scriptedProvider{
		replies: []provider.Reply{
			toolCallReply("call_1", "print(2+2)"),
			textReply("The answer is 4."),
		},
	}
	fake := &sandboxRecorder{
		execResponses: []map[string]any{{"status": "ok", "stdout": "4\n"}},
	}
	eng, store := newTestEngine(t, p, fake, Config{})

	result, err := eng.Run(context.Background(), "", "compute 2+2")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.SessionID == "" {
		t.Error("expected a generated session id")
	}
	if result.Incomplete {
		t.Error("run should not be incomplete")
	}

	// user, assistant(tool call), tool result, final assistant.
	if len(result.Messages) != 4 {
		t.Fatalf("messages = %d, want 4", len(result.Messages))
	}
	if result.Messages[3].Content != "The answer is 4." {
		t.Errorf("final message = %q", result.Messages[3].Content)
	}
	if result.Messages[2].Enhanced == nil || result.Messages[2].Enhanced.Stdout != "4\n" {
		t.Errorf("tool message missing enhanced stdout: %+v", result.Messages[2].Enhanced)
	}

	if len(fake.execCodes) != 1 || fake.execCodes[0] != "print(2+2)" {
		t.Errorf("sandbox executions = %v", fake.execCodes)
	}
	if len(p.requests) != 2 {
		t.Errorf("inference calls = %d, want 2", len(p.requests))
	}

	// Session history holds the full conversation in order.
	history, _ := store.History(context.Background(), result.SessionID)
	wantRoles := []api.Role{api.RoleUser, api.RoleAssistant, api.RoleTool, api.RoleAssistant}
	if len(history) != len(wantRoles) {
		t.Fatalf("history length = %d, want %d", len(history), len(wantRoles))
	}
	for i, role := range wantRoles {
		if history[i].Role != role {
			t.Errorf("history[%d].Role = %q, want %q", i, history[i].Role, role)
		}
	}
	if history[2].CallID != "call_1" {
		t.Errorf("tool turn call id = %q, want call_1", history[2].CallID)
	}
}

func TestRunPlainAnswerNoTools(t *testing.T) {
	p := &scriptedProvider{replies: []provider.Reply{textReply("Just an answer.")}}
	fake := &sandboxRecorder{}
	eng, _ := newTestEngine(t, p, fake, Config{})

	result, err := eng.Run(context.Background(), "sess_x", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(result.Messages))
	}
	if len(fake.execCodes) != 0 {
		t.Error("sandbox must not be touched without tool calls")
	}
	if result.SessionID != "sess_x" {
		t.Errorf("session id = %q, want sess_x", result.SessionID)
	}
}

func TestRunFailedExecutionFedBackToModel(t *testing.T) {
	p := &scriptedProvider{
		replies: []provider.Reply{
			toolCallReply("call_1", "1/0"),
			textReply("That divides by zero; here is the fix."),
		},
	}
	fake := &sandboxRecorder{
		execResponses: []map[string]any{{
			"status": "error",
			"error":  map[string]string{"name": "ZeroDivisionError", "message": "division by zero"},
		}},
	}
	eng, _ := newTestEngine(t, p, fake, Config{})

	result, err := eng.Run(context.Background(), "", "divide by zero")
	if err != nil {
		t.Fatalf("execution failure must not fail the run: %v", err)
	}

	// The second inference call must see the failure as a tool turn.
	if len(p.requests) != 2 {
		t.Fatalf("inference calls = %d, want 2", len(p.requests))
	}
	secondHistory := p.requests[1].History
	toolTurn := secondHistory[len(secondHistory)-1]
	if toolTurn.Role != api.RoleTool {
		t.Fatalf("last turn role = %q, want tool", toolTurn.Role)
	}
	if toolTurn.Raw == nil || toolTurn.Raw.Success {
		t.Error("tool turn must carry the failed raw result")
	}
	if result.Messages[2].Enhanced == nil || result.Messages[2].Enhanced.Error == nil {
		t.Error("enhanced output must expose the interpreter error")
	}
}

func TestRunInferenceErrorIsFatal(t *testing.T) {
	p := &scriptedProvider{err: api.NewInferenceError("backend unreachable")}
	fake := &sandboxRecorder{}
	eng, _ := newTestEngine(t, p, fake, Config{})

	_, err := eng.Run(context.Background(), "", "anything")
	if err == nil {
		t.Fatal("expected inference error to surface")
	}
	var agentErr *api.AgentError
	if !errors.As(err, &agentErr) || agentErr.Type != api.ErrorTypeInference {
		t.Errorf("error = %v, want inference AgentError", err)
	}
}

// failingAcquirer simulates a cluster with no sandbox capacity.
type failingAcquirer struct{}

func (failingAcquirer) Acquire(context.Context) (string, func(), error) {
	return "", nil, errors.New("no sandbox capacity")
}

func TestRunProvisioningFailureIsFatal(t *testing.T) {
	p := &scriptedProvider{replies: []provider.Reply{textReply("never reached")}}
	store := session.NewMemoryStore(0)
	newRunner := func() *sandbox.Runner {
		return sandbox.NewRunner(failingAcquirer{}, sandbox.NewClient(), sandbox.Config{})
	}
	eng := New(p, store, newRunner, Config{})

	_, err := eng.Run(context.Background(), "sess_prov", "plot sin(x)")
	if err == nil {
		t.Fatal("expected provisioning failure to fail the run")
	}
	var agentErr *api.AgentError
	if !errors.As(err, &agentErr) || agentErr.Type != api.ErrorTypeProvisioning {
		t.Errorf("error = %v, want provisioning AgentError", err)
	}

	// The model is never consulted and the session stays untouched.
	if len(p.requests) != 0 {
		t.Errorf("inference calls = %d, want 0", len(p.requests))
	}
	history, _ := store.History(context.Background(), "sess_prov")
	if len(history) != 0 {
		t.Errorf("history length = %d, want 0", len(history))
	}
}

func TestRunRoundBound(t *testing.T) {
	// A model that never stops calling tools must hit the bound.
	p := &scriptedProvider{
		replies: []provider.Reply{toolCallReply("call_loop", "print(1)")},
	}
	fake := &sandboxRecorder{}
	eng, _ := newTestEngine(t, p, fake, Config{MaxRounds: 3})

	result, err := eng.Run(context.Background(), "", "loop forever")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Incomplete {
		t.Error("expected Incomplete at the round bound")
	}
	if len(p.requests) != 3 {
		t.Errorf("inference calls = %d, want 3", len(p.requests))
	}
	if len(fake.execCodes) != 3 {
		t.Errorf("sandbox executions = %d, want 3", len(fake.execCodes))
	}
}

func TestRunSequentialDispatchOrder(t *testing.T) {
	// Two calls in one assistant turn run in the model's order.
	argsA, _ := json.Marshal(map[string]string{"code": "first"})
	argsB, _ := json.Marshal(map[string]string{"code": "second"})
	p := &scriptedProvider{
		replies: []provider.Reply{
			{
				Turn: api.Turn{
					Role: api.RoleAssistant,
					ToolCalls: []api.ToolCallRequest{
						{ID: "call_a", Name: "execute_code", Arguments: string(argsA)},
						{ID: "call_b", Name: "execute_code", Arguments: string(argsB)},
					},
				},
			},
			textReply("done"),
		},
	}
	fake := &sandboxRecorder{}
	eng, _ := newTestEngine(t, p, fake, Config{})

	if _, err := eng.Run(context.Background(), "", "two steps"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fake.execCodes) != 2 || fake.execCodes[0] != "first" || fake.execCodes[1] != "second" {
		t.Errorf("dispatch order = %v, want [first second]", fake.execCodes)
	}
}

func TestRunVisualizationArtifact(t *testing.T) {
	p := &scriptedProvider{
		replies: []provider.Reply{
			toolCallReply("call_1", "plot()"),
			textReply("Here is your chart."),
		},
	}
	fake := &sandboxRecorder{
		execResponses: []map[string]any{{
			"status":    "ok",
			"artifacts": map[string]string{"plot.png": "iVBORw0KGgo="},
		}},
	}
	eng, _ := newTestEngine(t, p, fake, Config{})

	result, err := eng.Run(context.Background(), "", "plot something")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	enhanced := result.Messages[2].Enhanced
	if enhanced == nil || enhanced.Visualization == "" {
		t.Fatal("expected visualization on the tool message")
	}
	if got, want := enhanced.Visualization[:22], "data:image/png;base64,"; got != want {
		t.Errorf("visualization prefix = %q, want %q", got, want)
	}
}

func TestRunUsesConfiguredInstructions(t *testing.T) {
	p := &scriptedProvider{replies: []provider.Reply{textReply("ok")}}
	fake := &sandboxRecorder{}
	eng, _ := newTestEngine(t, p, fake, Config{Instructions: "Answer in French."})

	if _, err := eng.Run(context.Background(), "", "bonjour"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if p.requests[0].Instructions != "Answer in French." {
		t.Errorf("instructions = %q", p.requests[0].Instructions)
	}
}

func TestDefaultInstructionsNameArtifactDirectory(t *testing.T) {
	// The sandbox only returns files written under OUTPUT_DIR, so the
	// default guidance must point the model there.
	instructions := Config{}.instructions()
	if !strings.Contains(instructions, "OUTPUT_DIR") {
		t.Error("default instructions do not mention OUTPUT_DIR")
	}
	if !strings.Contains(instructions, "plt.savefig") {
		t.Error("default instructions do not show how to save figures")
	}
}
