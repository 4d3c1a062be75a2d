// Package mcp connects external MCP (Model Context Protocol) servers
// into the agent loop. It discovers their tools at startup and executes
// tool calls server-side, so MCP tools sit alongside the built-in code
// execution tool behind the same registry.
//
// The package wraps the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk) and implements the
// tools.ToolExecutor interface. Configuration is provided via
// ServerConfig structs: server name, transport type (SSE or
// streamable-http), URL, and optional static headers.
package mcp
