// Command server runs the werkbank agent gateway.
//
// Configuration is loaded from a YAML file (-config flag, WERKBANK_CONFIG,
// ./config.yaml, or /etc/werkbank/config.yaml) with WERKBANK_* environment
// variable overrides. Missing backend credentials fail startup.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/werkbank-ai/werkbank/pkg/config"
	"github.com/werkbank-ai/werkbank/pkg/engine"
	"github.com/werkbank-ai/werkbank/pkg/files"
	"github.com/werkbank-ai/werkbank/pkg/provider/openaichat"
	"github.com/werkbank-ai/werkbank/pkg/sandbox"
	sandboxk8s "github.com/werkbank-ai/werkbank/pkg/sandbox/kubernetes"
	"github.com/werkbank-ai/werkbank/pkg/session"
	"github.com/werkbank-ai/werkbank/pkg/tools"
	"github.com/werkbank-ai/werkbank/pkg/tools/mcp"
	transporthttp "github.com/werkbank-ai/werkbank/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (default: discover)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	temperature := cfg.Inference.Temperature
	prov, err := openaichat.New(openaichat.Config{
		BaseURL:     cfg.Inference.BackendURL,
		APIKey:      cfg.Inference.APIKey,
		Model:       cfg.Inference.Model,
		Temperature: &temperature,
		Timeout:     cfg.Inference.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	defer prov.Close()

	acquirer, err := buildAcquirer(cfg)
	if err != nil {
		return fmt.Errorf("creating sandbox acquirer: %w", err)
	}
	newRunner := func() *sandbox.Runner {
		return sandbox.NewRunner(acquirer, sandbox.NewClient(), sandbox.Config{
			ExecutionTimeout: cfg.Sandbox.ExecutionTimeout,
		})
	}

	store := session.NewMemoryStore(cfg.Sessions.MaxSize)
	defer store.Close()

	staging, err := files.NewStaging(cfg.Uploads.Dir)
	if err != nil {
		return fmt.Errorf("creating upload staging: %w", err)
	}

	static, err := connectMCPServers(cfg.MCP.Servers)
	if err != nil {
		return err
	}

	eng := engine.New(prov, store, newRunner, engine.Config{
		MaxRounds:    cfg.Engine.MaxRounds,
		Instructions: cfg.Engine.Instructions,
	}, static...)

	metricsPath := ""
	if cfg.Observability.Metrics.Enabled {
		metricsPath = cfg.Observability.Metrics.Path
	}

	slog.Info("gateway starting",
		"port", cfg.Server.Port,
		"backend", cfg.Inference.BackendURL,
		"model", cfg.Inference.Model,
		"sandbox_mode", cfg.Sandbox.Mode,
		"mcp_servers", len(cfg.MCP.Servers),
	)

	srv := transporthttp.NewServer(eng, eng, staging,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithMetricsPath(metricsPath),
	)
	return srv.ListenAndServe()
}

// buildAcquirer selects the sandbox acquisition strategy: a fixed URL in
// static mode, or per-request SandboxClaims in kubernetes mode.
func buildAcquirer(cfg *config.Config) (sandbox.Acquirer, error) {
	switch cfg.Sandbox.Mode {
	case "static":
		return &sandbox.StaticAcquirer{URL: cfg.Sandbox.URL}, nil
	case "kubernetes":
		scheme, err := sandboxk8s.NewScheme()
		if err != nil {
			return nil, fmt.Errorf("building scheme: %w", err)
		}
		restCfg, err := ctrl.GetConfig()
		if err != nil {
			return nil, fmt.Errorf("loading kubeconfig: %w", err)
		}
		c, err := client.New(restCfg, client.Options{Scheme: scheme})
		if err != nil {
			return nil, fmt.Errorf("creating kubernetes client: %w", err)
		}
		return sandboxk8s.NewClaimAcquirer(c,
			cfg.Sandbox.Kubernetes.Template,
			cfg.Sandbox.Kubernetes.Namespace,
			cfg.Sandbox.Kubernetes.ReadyTimeout,
		), nil
	default:
		return nil, fmt.Errorf("unknown sandbox mode %q", cfg.Sandbox.Mode)
	}
}

// connectMCPServers connects every configured MCP server and wraps them
// in a single executor. A server that cannot be reached fails startup;
// silently dropping configured tools would be worse.
func connectMCPServers(servers []config.MCPServerConfig) ([]tools.ToolExecutor, error) {
	if len(servers) == 0 {
		return nil, nil
	}

	clients := make(map[string]*mcp.MCPClient, len(servers))
	for _, sc := range servers {
		mc := mcp.NewMCPClient(mcp.ServerConfig{
			Name:      sc.Name,
			Transport: sc.Transport,
			URL:       sc.URL,
			Headers:   sc.Headers,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := mc.Connect(ctx)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("connecting MCP server %q: %w", sc.Name, err)
		}
		slog.Info("mcp server connected", "name", sc.Name, "url", sc.URL)
		clients[sc.Name] = mc
	}
	return []tools.ToolExecutor{mcp.NewMCPExecutor(clients)}, nil
}
