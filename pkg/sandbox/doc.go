// Package sandbox is the execution adapter for the remote code sandbox.
// A Runner owns one sandbox instance for the lifetime of a request: it
// provisions the sandbox on first use, stages uploaded files, submits
// code for execution, collects image artifacts from the sandbox output
// directory, and tears the sandbox down on every exit path.
//
// The remote sandbox is an expensive, stateful external resource. The
// adapter's contract is that every possible failure — provisioning, file
// staging, execution, artifact extraction — terminates in a structured,
// non-throwing ExecutionResult, so the agent loop has exactly one way to
// react to execution trouble: report it to the model.
package sandbox
