// Package memstore is a client for the remote long-term memory service.
//
// The service stores free-form facts ("memories") keyed by an owner
// identity. Jarvis reads the full fact set at session start and appends
// the session transcript at session end; the service performs its own
// fact extraction and deduplication server-side. The client keeps no
// local state and is safe to share across concurrent sessions.
//
// Every failure that makes the service unreachable is reported as an
// error wrapping [ErrUnavailable]. Callers are expected to degrade:
// a fetch failure means an unpersonalized session, never a dead one.
package memstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/roymercy27-cyber/jarvis-agent/internal/httpkit"
)

// ErrUnavailable indicates the memory service could not be reached or
// answered with a server error. It is always wrapped with detail;
// match with errors.Is.
var ErrUnavailable = errors.New("memory service unavailable")

// Record is a single stored fact belonging to one owner. Records are
// immutable from the client's perspective; only the service
// consolidates or rewrites them.
type Record struct {
	ID        string    `json:"id,omitempty"`
	Memory    string    `json:"memory"`
	OwnerID   string    `json:"user_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Message is one conversational turn submitted for fact extraction.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to a mem0-compatible memory API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a memory client. The request timeout bounds every
// individual fetch or append call.
func New(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpkit.NewClient(httpkit.WithTimeout(timeout)),
		logger:  logger,
	}
}

// FetchAll returns every stored fact for the owner, in the service's
// relevance order. The returned slice order is what the preamble
// builder serializes, so it must be passed through unmodified.
func (c *Client) FetchAll(ctx context.Context, ownerID string) ([]Record, error) {
	u := fmt.Sprintf("%s/v1/memories/?%s", c.baseURL, url.Values{"user_id": {ownerID}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("memstore: build fetch request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("memstore: fetch for %s: %w: %w", ownerID, ErrUnavailable, err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("memstore: fetch for %s: %w: HTTP %d: %s",
			ownerID, ErrUnavailable, resp.StatusCode, string(body))
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("memstore: decode fetch response: %w: %w", ErrUnavailable, err)
	}

	c.logger.Debug("fetched memories", "owner", ownerID, "count", len(records))
	return records, nil
}

// appendRequest is the wire shape for submitting turns.
type appendRequest struct {
	Messages []Message `json:"messages"`
	UserID   string    `json:"user_id"`
}

// Append submits conversation turns for server-side fact extraction.
// Duplicate appends with identical content may create duplicate facts;
// the session controller filters injected context before calling this.
func (c *Client) Append(ctx context.Context, ownerID string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	payload, err := json.Marshal(appendRequest{Messages: messages, UserID: ownerID})
	if err != nil {
		return fmt.Errorf("memstore: encode append request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/memories/", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("memstore: build append request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("memstore: append for %s: %w: %w", ownerID, ErrUnavailable, err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("memstore: append for %s: %w: HTTP %d: %s",
			ownerID, ErrUnavailable, resp.StatusCode, string(body))
	}

	c.logger.Info("memory sync complete", "owner", ownerID, "messages", len(messages))
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Token "+c.apiKey)
	}
}
