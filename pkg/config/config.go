// Package config provides unified configuration for the werkbank server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (WERKBANK_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the werkbank server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Inference     InferenceConfig     `yaml:"inference"`
	Sandbox       SandboxConfig       `yaml:"sandbox"`
	Engine        EngineConfig        `yaml:"engine"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Uploads       UploadsConfig       `yaml:"uploads"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `yaml:"port"`         // default: 8080
	ReadTimeout time.Duration `yaml:"read_timeout"` // default: 30s
	// WriteTimeout covers full agent runs, which include several
	// inference and sandbox round trips. Default: 300s.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// InferenceConfig holds settings for the inference backend.
type InferenceConfig struct {
	BackendURL  string        `yaml:"backend_url"`  // required
	APIKey      string        `yaml:"api_key"`      // required (or api_key_file)
	APIKeyFile  string        `yaml:"api_key_file"` // _file variant for api_key
	Model       string        `yaml:"model"`        // default: "gpt-4o-mini"
	Temperature float64       `yaml:"temperature"`  // default: 0.1
	Timeout     time.Duration `yaml:"timeout"`      // default: 120s
}

// SandboxConfig holds sandbox provisioning settings.
type SandboxConfig struct {
	// Mode selects the acquirer: "static" (fixed sandbox server URL) or
	// "kubernetes" (SandboxClaim per request). Default: "static".
	Mode string `yaml:"mode"`

	// URL is the sandbox server endpoint for static mode.
	URL string `yaml:"url"`

	// ExecutionTimeout is the per-run wall clock limit in seconds
	// enforced by the sandbox. Default: 60.
	ExecutionTimeout int `yaml:"execution_timeout"`

	Kubernetes KubernetesConfig `yaml:"kubernetes"`
}

// KubernetesConfig holds SandboxClaim settings for kubernetes mode.
type KubernetesConfig struct {
	Template     string        `yaml:"template"`      // SandboxTemplate name, required in kubernetes mode
	Namespace    string        `yaml:"namespace"`     // default: "default"
	ReadyTimeout time.Duration `yaml:"ready_timeout"` // default: 60s
}

// EngineConfig holds agent loop settings.
type EngineConfig struct {
	MaxRounds    int    `yaml:"max_rounds"`   // default: 10
	Instructions string `yaml:"instructions"` // optional system message override
}

// SessionsConfig holds session store settings.
type SessionsConfig struct {
	MaxSize int `yaml:"max_size"` // LRU bound, default: 10000
}

// UploadsConfig holds upload staging settings.
type UploadsConfig struct {
	Dir string `yaml:"dir"` // scratch directory, default: os temp subdir
}

// MCPConfig holds MCP (Model Context Protocol) server settings.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a single MCP server connection.
type MCPServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 300 * time.Second,
		},
		Inference: InferenceConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.1,
			Timeout:     120 * time.Second,
		},
		Sandbox: SandboxConfig{
			Mode:             "static",
			ExecutionTimeout: 60,
			Kubernetes: KubernetesConfig{
				Namespace:    "default",
				ReadyTimeout: 60 * time.Second,
			},
		},
		Engine: EngineConfig{
			MaxRounds: 10,
		},
		Sessions: SessionsConfig{
			MaxSize: 10000,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
