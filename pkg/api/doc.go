// Package api defines the shared types of the werkbank gateway: conversation
// turns, tool call requests and results, execution records produced by the
// sandbox, file references for uploads, and the structured error taxonomy
// used across all layers.
//
// This package has no external dependencies beyond the standard library and
// google/uuid; every other package depends on it, never the other way around.
package api
