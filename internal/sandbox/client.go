package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the external sandbox service over HTTP. It is
// immutable after creation and safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// NewClient creates a provider client for the sandbox service
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

type createRequest struct {
	Template string            `json:"template"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type sandboxResponse struct {
	SandboxID string            `json:"sandboxId"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	StartedAt time.Time         `json:"startedAt"`
	EndAt     *time.Time        `json:"endAt,omitempty"`
}

// Create provisions a new sandbox from a runtime template
func (c *Client) Create(ctx context.Context, template string, metadata map[string]string) (Handle, error) {
	var resp sandboxResponse
	if err := c.do(ctx, http.MethodPost, "/sandboxes", createRequest{Template: template, Metadata: metadata}, &resp); err != nil {
		return nil, fmt.Errorf("failed to create sandbox: %w", err)
	}
	return &remoteHandle{client: c, id: resp.SandboxID, metadata: resp.Metadata}, nil
}

// List returns the provider's sandbox inventory
func (c *Client) List(ctx context.Context) ([]Info, error) {
	var resp struct {
		Sandboxes []sandboxResponse `json:"sandboxes"`
	}
	if err := c.do(ctx, http.MethodGet, "/sandboxes", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list sandboxes: %w", err)
	}

	infos := make([]Info, 0, len(resp.Sandboxes))
	for _, s := range resp.Sandboxes {
		infos = append(infos, Info{
			SandboxID: s.SandboxID,
			Metadata:  s.Metadata,
			StartedAt: s.StartedAt,
			EndAt:     s.EndAt,
		})
	}
	return infos, nil
}

// Connect attaches to an existing sandbox by id
func (c *Client) Connect(ctx context.Context, sandboxID string) (Handle, error) {
	var resp sandboxResponse
	if err := c.do(ctx, http.MethodPost, "/sandboxes/"+sandboxID+"/connect", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to connect to sandbox %s: %w", sandboxID, err)
	}
	return &remoteHandle{client: c, id: resp.SandboxID, metadata: resp.Metadata}, nil
}

// remoteHandle proxies handle operations to the sandbox service
type remoteHandle struct {
	client   *Client
	id       string
	metadata map[string]string
}

func (h *remoteHandle) ID() string {
	return h.id
}

func (h *remoteHandle) Metadata() map[string]string {
	return h.metadata
}

func (h *remoteHandle) Write(ctx context.Context, path string, content []byte) error {
	body := map[string]string{"path": path, "content": string(content)}
	if err := h.client.do(ctx, http.MethodPost, "/sandboxes/"+h.id+"/files", body, nil); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (h *remoteHandle) Run(ctx context.Context, command string) (*ExecResult, error) {
	var result ExecResult
	body := map[string]string{"command": command}
	if err := h.client.do(ctx, http.MethodPost, "/sandboxes/"+h.id+"/exec", body, &result); err != nil {
		return nil, fmt.Errorf("failed to run command: %w", err)
	}
	return &result, nil
}

func (h *remoteHandle) GetHost(ctx context.Context, port int) (string, error) {
	var resp struct {
		Host string `json:"host"`
	}
	path := fmt.Sprintf("/sandboxes/%s/host?port=%d", h.id, port)
	if err := h.client.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", fmt.Errorf("failed to resolve sandbox host: %w", err)
	}
	return resp.Host, nil
}

func (h *remoteHandle) Kill(ctx context.Context) error {
	if err := h.client.do(ctx, http.MethodDelete, "/sandboxes/"+h.id, nil, nil); err != nil {
		return fmt.Errorf("failed to kill sandbox %s: %w", h.id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sandbox service returned %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
