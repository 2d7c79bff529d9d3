package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roymercy27-cyber/jarvis-agent/internal/httpkit"
)

// DefaultTimeout bounds each discovery request.
const DefaultTimeout = 10 * time.Second

// Declaration is a remote tool as returned by tools/list.
type Declaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type toolsListResult struct {
	Tools []Declaration `json:"tools"`
}

// contentBlock is a single content item in a tools/call response.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type callResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// Client talks to a single tool extension service.
type Client struct {
	name    string
	url     string
	headers map[string]string
	http    *http.Client
	logger  *slog.Logger
	nextID  atomic.Int64

	mu    sync.RWMutex
	decls []Declaration
}

// NewClient creates a discovery client for the service at url. Extra
// headers (Authorization and the like) are sent with every request.
func NewClient(name, url string, headers map[string]string, logger *slog.Logger) *Client {
	return &Client{
		name:    name,
		url:     url,
		headers: headers,
		http:    httpkit.NewClient(httpkit.WithTimeout(DefaultTimeout)),
		logger:  logger.With("extension", name),
	}
}

// Name returns the service name this client is connected to.
func (c *Client) Name() string { return c.name }

// ListTools calls tools/list and returns the declared tools. Results
// are cached for the lifetime of the client.
func (c *Client) ListTools(ctx context.Context) ([]Declaration, error) {
	c.mu.RLock()
	if c.decls != nil {
		defer c.mu.RUnlock()
		return c.decls, nil
	}
	c.mu.RUnlock()

	resp, err := c.send(ctx, "tools/list", nil)
	if err != nil {
		return nil, fmt.Errorf("tools/list: %w", err)
	}

	var result toolsListResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("unmarshal tools/list result: %w", err)
	}

	c.mu.Lock()
	c.decls = result.Tools
	c.mu.Unlock()

	c.logger.Debug("discovered extension tools", "count", len(result.Tools))
	return result.Tools, nil
}

// Invoke calls a remote tool by its declared name. Text content blocks
// from the response are joined into a single string.
func (c *Client) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	resp, err := c.send(ctx, "tools/call", map[string]any{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		return "", fmt.Errorf("tools/call %s: %w", name, err)
	}

	var result callResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return "", fmt.Errorf("unmarshal tools/call result: %w", err)
	}

	text := extractText(result.Content)
	if result.IsError {
		return "", fmt.Errorf("extension tool %s returned error: %s", name, text)
	}
	return text, nil
}

// Ping checks whether the extension service is responsive.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.send(ctx, "ping", nil)
	return err
}

func (c *Client) send(ctx context.Context, method string, params any) (*response, error) {
	req := &request{
		JSONRPC: jsonrpcVersion,
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s: %w", c.url, err)
	}
	defer httpkit.DrainAndClose(httpResp.Body, 4096)

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extension service returned %d", httpResp.StatusCode)
	}

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return &resp, nil
}

// extractText joins text content blocks, marking non-text ones inline.
func extractText(blocks []contentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" {
			parts = append(parts, b.Text)
		} else {
			parts = append(parts, fmt.Sprintf("[%s]", b.Type))
		}
	}
	return strings.Join(parts, "\n")
}
