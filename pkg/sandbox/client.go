package sandbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the sandbox server's REST API.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a sandbox HTTP client. The overall HTTP timeout is
// generous; the per-execution timeout is enforced by the sandbox itself.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

// Execute submits code to the sandbox at the given URL and returns the
// decoded response. Transport and protocol failures are returned as
// errors; the Runner converts them into ExecutionResults.
func (c *Client) Execute(ctx context.Context, sandboxURL string, req *execRequest) (*execResponse, error) {
	var resp execResponse
	if err := c.post(ctx, sandboxURL+"/execute", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stage uploads one file into the sandbox working directory and returns
// the remote path.
func (c *Client) Stage(ctx context.Context, sandboxURL, name string, content []byte) (string, error) {
	req := &stageRequest{
		Name:    name,
		Content: base64.StdEncoding.EncodeToString(content),
	}
	var resp stageResponse
	if err := c.post(ctx, sandboxURL+"/files", req, &resp); err != nil {
		return "", err
	}
	return resp.Path, nil
}

// Health checks whether the sandbox server is reachable.
func (c *Client) Health(ctx context.Context, sandboxURL string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, sandboxURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sandbox health check returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sandbox request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("sandbox at capacity (HTTP 429)")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sandbox returned HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
