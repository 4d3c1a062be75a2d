// Package session holds conversation state between requests: the ordered
// turn history and the files uploaded into each session. The Store
// interface is injected into the engine and the HTTP surface so the
// backing implementation can be swapped without touching either.
package session

import (
	"context"

	"github.com/werkbank-ai/werkbank/pkg/api"
)

// Store manages per-session conversation state. Unknown session IDs are
// created on first use; after Clear, the same ID starts fresh.
// Implementations must preserve turn order and roles exactly as appended.
type Store interface {
	// AppendTurns adds turns to the end of the session's history,
	// creating the session if it does not exist.
	AppendTurns(ctx context.Context, sessionID string, turns ...api.Turn) error

	// History returns a copy of the session's turns in append order.
	// An unknown session yields an empty history, not an error.
	History(ctx context.Context, sessionID string) ([]api.Turn, error)

	// AddFiles associates uploaded files with the session and records a
	// system turn announcing them, so the model learns about uploads in
	// conversation order.
	AddFiles(ctx context.Context, sessionID string, files []api.FileRef) error

	// ListFiles returns the files uploaded into the session, in upload
	// order.
	ListFiles(ctx context.Context, sessionID string) ([]api.FileRef, error)

	// Clear removes all state for the session. Clearing an unknown
	// session is a no-op.
	Clear(ctx context.Context, sessionID string) error

	// Serialize returns the session state as a self-contained byte
	// slice that Load can restore, including turn order and roles.
	Serialize(ctx context.Context, sessionID string) ([]byte, error)

	// Load replaces the session's state with previously serialized data.
	Load(ctx context.Context, sessionID string, data []byte) error

	// Close releases store resources.
	Close() error
}
