// Package transport defines the handler contract between the HTTP layer
// and the agent engine.
//
// Two interfaces define the contract:
//
//   - AgentRunner handles the core run-prompt operation: drive the agent
//     loop for one user prompt and return the conversation delta.
//   - SessionManager handles session lifecycle outside the loop: clearing
//     conversation state and registering uploaded files.
//
// The middleware chain wraps AgentRunner with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog. The package also
// maps AgentError types to HTTP status codes for the adapter.
package transport
