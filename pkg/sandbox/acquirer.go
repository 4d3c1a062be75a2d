package sandbox

import "context"

// Acquirer abstracts sandbox provisioning. Implementations exist for
// static URL mode (development: a fixed sandbox server) and SandboxClaim
// mode (production: per-request Kubernetes sandbox pods).
type Acquirer interface {
	// Acquire returns a sandbox URL to use for execution. The release
	// function must be called after use to free the sandbox.
	Acquire(ctx context.Context) (sandboxURL string, release func(), err error)
}

// StaticAcquirer returns a fixed sandbox URL. Used for development
// against a long-lived local sandbox server.
type StaticAcquirer struct {
	URL string
}

func (a *StaticAcquirer) Acquire(_ context.Context) (string, func(), error) {
	return a.URL, func() {}, nil
}
