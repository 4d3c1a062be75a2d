package openaichat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/werkbank-ai/werkbank/pkg/api"
	"github.com/werkbank-ai/werkbank/pkg/provider"
)

// Config holds settings for the Chat Completions adapter.
type Config struct {
	// BaseURL is the backend base URL (without /v1/chat/completions).
	BaseURL string

	// APIKey is sent as a Bearer token when non-empty.
	APIKey string

	// Model is the model name sent with every request.
	Model string

	// Temperature is the default sampling temperature (nil = backend default).
	Temperature *float64

	// Timeout bounds one inference call (default 120s).
	Timeout time.Duration
}

// ChatProvider implements provider.Provider for OpenAI-compatible backends.
type ChatProvider struct {
	cfg    Config
	client *http.Client
}

var _ provider.Provider = (*ChatProvider)(nil)

// New creates a ChatProvider. BaseURL and Model are required.
func New(cfg Config) (*ChatProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaichat: BaseURL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("openaichat: Model is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &ChatProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the adapter identifier.
func (p *ChatProvider) Name() string {
	return "openaichat"
}

// Complete performs one non-streaming inference call.
func (p *ChatProvider) Complete(ctx context.Context, req *provider.Request) (*provider.Reply, error) {
	chatReq := translateRequest(req, p.cfg.Model, p.cfg.Temperature)

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, api.NewInferenceError(fmt.Sprintf("marshal request: %s", err.Error()))
	}

	url := p.cfg.BaseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, api.NewInferenceError(fmt.Sprintf("create request: %s", err.Error()))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, api.NewInferenceError(fmt.Sprintf("backend connection error: %s", err.Error()))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, mapHTTPError(httpResp)
	}

	var chatResp chatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, api.NewInferenceError(fmt.Sprintf("parse backend response: %s", err.Error()))
	}
	if len(chatResp.Choices) == 0 {
		return nil, api.NewInferenceError("backend produced no choices")
	}

	return translateResponse(&chatResp), nil
}

// Close releases the HTTP client's idle connections.
func (p *ChatProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// mapHTTPError converts a non-2xx backend response into an AgentError,
// pulling the message out of the Chat Completions error body when present.
func mapHTTPError(resp *http.Response) *api.AgentError {
	message := extractErrorMessage(resp.Body)
	if message == "" {
		message = fmt.Sprintf("backend error (HTTP %d)", resp.StatusCode)
	}
	return api.NewInferenceError(message)
}

// extractErrorMessage parses the body as a chatErrorResponse and returns
// the message if found.
func extractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var errResp chatErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return ""
}
