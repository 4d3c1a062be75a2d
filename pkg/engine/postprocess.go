package engine

import (
	"encoding/base64"
	"fmt"

	"github.com/werkbank-ai/werkbank/pkg/api"
)

// ProcessedTurn is the response-boundary form of a turn: role and text
// content, plus enhanced output when the turn wraps raw tool output.
type ProcessedTurn struct {
	Role     api.Role        `json:"role"`
	Content  string          `json:"content"`
	Enhanced *EnhancedOutput `json:"enhanced_output,omitempty"`
}

// EnhancedOutput exposes the structured parts of an execution result,
// with artifacts inlined as embedded data so clients can render them
// without another round trip.
type EnhancedOutput struct {
	Stdout        string         `json:"stdout,omitempty"`
	Stderr        string         `json:"stderr,omitempty"`
	Error         *api.ExecError `json:"error,omitempty"`
	Visualization string         `json:"visualization,omitempty"`
}

// Process normalizes turns for the response boundary. Enhanced output is
// attached only to turns carrying raw execution results.
func Process(turns []api.Turn) []ProcessedTurn {
	out := make([]ProcessedTurn, 0, len(turns))
	for _, turn := range turns {
		p := ProcessedTurn{
			Role:    turn.Role,
			Content: turn.Content,
		}
		if turn.Raw != nil {
			p.Enhanced = &EnhancedOutput{
				Stdout:        turn.Raw.Stdout,
				Stderr:        turn.Raw.Stderr,
				Error:         turn.Raw.Error,
				Visualization: visualization(turn.Raw.Artifacts),
			}
		}
		out = append(out, p)
	}
	return out
}

// visualization inlines the first image artifact as a data URI. One
// image per result is the common case; clients wanting every artifact
// read them from the raw result.
func visualization(artifacts []api.Artifact) string {
	for _, a := range artifacts {
		if a.Kind != "image" || len(a.Data) == 0 {
			continue
		}
		mime := "image/" + a.Format
		if a.Format == "svg" {
			mime = "image/svg+xml"
		}
		return fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(a.Data))
	}
	return ""
}
