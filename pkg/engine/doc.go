// Package engine drives the think/act cycle at the heart of the agent:
// it sends the session history to the inference backend, dispatches any
// requested tool calls into a request-scoped sandbox, feeds the results
// back, and repeats until the model answers in plain text.
//
// Each request provisions its own sandbox, torn down on every exit path,
// so successive tool calls within one request share interpreter state
// while concurrent requests never do. Sessions with uploaded files take
// a separate single-shot path that embeds a file manifest in the prompt,
// extracts one code block from the reply, stages the files, and executes
// the code directly.
package engine
