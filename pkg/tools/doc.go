// Package tools defines the tool execution contract for the agent loop.
// It provides the ToolExecutor interface that pluggable tool backends
// implement, a Registry that routes calls by tool name, and the built-in
// code execution tool backed by a remote sandbox.
//
// Executors come in two lifetimes: static executors (MCP servers) live
// for the process, while the code executor is request-scoped because it
// wraps a sandbox whose filesystem state must persist across the rounds
// of one request and no further.
package tools
