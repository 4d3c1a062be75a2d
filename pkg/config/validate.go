package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for invalid or missing values.
// Backend credentials are checked here so that a misconfigured server
// fails at startup rather than on the first request.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Inference.BackendURL == "" {
		errs = append(errs, errors.New("inference.backend_url is required"))
	}
	if c.Inference.APIKey == "" {
		errs = append(errs, errors.New("inference.api_key is required (set it directly, via api_key_file, or WERKBANK_API_KEY)"))
	}
	if c.Inference.Model == "" {
		errs = append(errs, errors.New("inference.model must not be empty"))
	}

	switch c.Sandbox.Mode {
	case "static":
		if c.Sandbox.URL == "" {
			errs = append(errs, errors.New("sandbox.url is required in static mode"))
		}
	case "kubernetes":
		if c.Sandbox.Kubernetes.Template == "" {
			errs = append(errs, errors.New("sandbox.kubernetes.template is required in kubernetes mode"))
		}
		if c.Sandbox.Kubernetes.Namespace == "" {
			errs = append(errs, errors.New("sandbox.kubernetes.namespace must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("sandbox.mode must be \"static\" or \"kubernetes\", got %q", c.Sandbox.Mode))
	}
	if c.Sandbox.ExecutionTimeout <= 0 {
		errs = append(errs, fmt.Errorf("sandbox.execution_timeout must be positive, got %d", c.Sandbox.ExecutionTimeout))
	}

	if c.Engine.MaxRounds <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_rounds must be positive, got %d", c.Engine.MaxRounds))
	}
	if c.Sessions.MaxSize <= 0 {
		errs = append(errs, fmt.Errorf("sessions.max_size must be positive, got %d", c.Sessions.MaxSize))
	}

	for i, srv := range c.MCP.Servers {
		if srv.Name == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name is required", i))
		}
		if srv.URL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].url is required", i))
		}
		switch srv.Transport {
		case "sse", "streamable-http":
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].transport must be \"sse\" or \"streamable-http\", got %q", i, srv.Transport))
		}
	}

	return errors.Join(errs...)
}
