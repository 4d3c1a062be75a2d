package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration from defaults, an optional YAML file,
// environment variable overrides, and file references, then validates
// the result. An empty path triggers config file discovery.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	configPath, err := discoverConfigFile(path)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// discoverConfigFile resolves the config file path. Explicit paths must
// exist; discovered paths are optional.
func discoverConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if fromEnv := os.Getenv("WERKBANK_CONFIG"); fromEnv != "" {
		if _, err := os.Stat(fromEnv); err != nil {
			return "", fmt.Errorf("config file %s (from WERKBANK_CONFIG): %w", fromEnv, err)
		}
		return fromEnv, nil
	}
	for _, candidate := range []string{"./config.yaml", "/etc/werkbank/config.yaml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", nil
}

// applyEnvOverrides applies WERKBANK_* environment variables on top of
// file-based configuration.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("WERKBANK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WERKBANK_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("WERKBANK_BACKEND_URL"); v != "" {
		cfg.Inference.BackendURL = v
	}
	if v := os.Getenv("WERKBANK_API_KEY"); v != "" {
		cfg.Inference.APIKey = v
	}
	if v := os.Getenv("WERKBANK_API_KEY_FILE"); v != "" {
		cfg.Inference.APIKeyFile = v
	}
	if v := os.Getenv("WERKBANK_MODEL"); v != "" {
		cfg.Inference.Model = v
	}
	if v := os.Getenv("WERKBANK_SANDBOX_MODE"); v != "" {
		cfg.Sandbox.Mode = v
	}
	if v := os.Getenv("WERKBANK_SANDBOX_URL"); v != "" {
		cfg.Sandbox.URL = v
	}
	if v := os.Getenv("WERKBANK_SANDBOX_TEMPLATE"); v != "" {
		cfg.Sandbox.Kubernetes.Template = v
	}
	if v := os.Getenv("WERKBANK_SANDBOX_NAMESPACE"); v != "" {
		cfg.Sandbox.Kubernetes.Namespace = v
	}
	if v := os.Getenv("WERKBANK_MAX_ROUNDS"); v != "" {
		rounds, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WERKBANK_MAX_ROUNDS: %w", err)
		}
		cfg.Engine.MaxRounds = rounds
	}
	if v := os.Getenv("WERKBANK_UPLOAD_DIR"); v != "" {
		cfg.Uploads.Dir = v
	}
	if v := os.Getenv("WERKBANK_MCP_SERVERS"); v != "" {
		var servers []MCPServerConfig
		if err := json.Unmarshal([]byte(v), &servers); err != nil {
			return fmt.Errorf("WERKBANK_MCP_SERVERS: %w", err)
		}
		cfg.MCP.Servers = servers
	}
	return nil
}

// resolveFileReferences reads secrets referenced via *_file fields.
// Direct values take precedence over file references.
func resolveFileReferences(cfg *Config) error {
	if cfg.Inference.APIKey == "" && cfg.Inference.APIKeyFile != "" {
		key, err := readSecretFile(cfg.Inference.APIKeyFile)
		if err != nil {
			return fmt.Errorf("inference.api_key_file: %w", err)
		}
		cfg.Inference.APIKey = key
	}
	return nil
}

func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
