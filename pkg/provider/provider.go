// Package provider abstracts the inference backend. The agent loop hands
// the backend a full ordered history plus the advertised tool descriptors
// and receives a single assistant turn back: either a plain answer or a
// set of tool invocation requests. Each adapter handles its own backend
// protocol internally.
package provider

import (
	"context"

	"github.com/werkbank-ai/werkbank/pkg/api"
)

// Provider is an inference backend adapter. Implementations must be safe
// for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the adapter identifier (e.g., "openaichat").
	Name() string

	// Complete sends the history and tool descriptors to the backend and
	// returns one assistant turn. A returned error means the inference
	// service itself failed (network, auth, malformed reply); such errors
	// are fatal for the current request.
	Complete(ctx context.Context, req *Request) (*Reply, error)

	// Close releases adapter resources.
	Close() error
}

// Request carries everything the backend needs for one inference call.
type Request struct {
	// Instructions is the system message, sent before the history.
	Instructions string

	// History is the full ordered conversation so far. Replay order is
	// meaningful; adapters must not reorder turns.
	History []api.Turn

	// Tools are the descriptors of callable tools for this request.
	// Empty means the model cannot request tool invocations.
	Tools []api.ToolDefinition

	// Temperature overrides the backend default when non-nil.
	Temperature *float64
}

// Reply is the backend's assistant turn plus bookkeeping.
type Reply struct {
	// Turn is the assistant turn: Content, ToolCalls, or both.
	Turn api.Turn

	// Model is the model that produced the reply.
	Model string

	// InputTokens and OutputTokens report usage when the backend
	// provides it; zero otherwise.
	InputTokens  int
	OutputTokens int
}
