package engine

import (
	"strings"
	"testing"

	"github.com/werkbank-ai/werkbank/pkg/api"
)

func TestProcessPlainTurns(t *testing.T) {
	turns := []api.Turn{
		{Role: api.RoleUser, Content: "hello"},
		{Role: api.RoleAssistant, Content: "hi"},
	}
	processed := Process(turns)
	if len(processed) != 2 {
		t.Fatalf("processed = %d, want 2", len(processed))
	}
	for i := range processed {
		if processed[i].Enhanced != nil {
			t.Errorf("turn %d: enhanced output on a plain turn", i)
		}
		if processed[i].Role != turns[i].Role || processed[i].Content != turns[i].Content {
			t.Errorf("turn %d mismatch: %+v", i, processed[i])
		}
	}
}

func TestProcessAttachesEnhancedOutput(t *testing.T) {
	turns := []api.Turn{
		{
			Role:    api.RoleTool,
			CallID:  "call_1",
			Content: "summary",
			Raw: &api.ExecutionResult{
				Success: false,
				Stdout:  "out",
				Stderr:  "err",
				Error:   &api.ExecError{Name: "TypeError", Message: "oops"},
			},
		},
	}
	processed := Process(turns)
	e := processed[0].Enhanced
	if e == nil {
		t.Fatal("expected enhanced output")
	}
	if e.Stdout != "out" || e.Stderr != "err" {
		t.Errorf("streams = %q/%q", e.Stdout, e.Stderr)
	}
	if e.Error == nil || e.Error.Name != "TypeError" {
		t.Errorf("error = %+v", e.Error)
	}
	if e.Visualization != "" {
		t.Error("no artifacts means no visualization")
	}
}

func TestVisualizationDataURI(t *testing.T) {
	tests := []struct {
		name       string
		artifacts  []api.Artifact
		wantPrefix string
	}{
		{
			name:       "png",
			artifacts:  []api.Artifact{{Kind: "image", Format: "png", Data: []byte{0x89, 0x50}}},
			wantPrefix: "data:image/png;base64,",
		},
		{
			name:       "svg mime",
			artifacts:  []api.Artifact{{Kind: "image", Format: "svg", Data: []byte("<svg/>")}},
			wantPrefix: "data:image/svg+xml;base64,",
		},
		{
			name:       "skips empty data",
			artifacts:  []api.Artifact{{Kind: "image", Format: "png"}, {Kind: "image", Format: "jpeg", Data: []byte{0xff}}},
			wantPrefix: "data:image/jpeg;base64,",
		},
		{
			name:       "none",
			artifacts:  nil,
			wantPrefix: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := visualization(tt.artifacts)
			if tt.wantPrefix == "" {
				if got != "" {
					t.Errorf("expected empty, got %q", got)
				}
				return
			}
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("visualization = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}
