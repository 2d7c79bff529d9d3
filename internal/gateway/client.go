// Package gateway connects the worker to the hosting gateway and
// receives session jobs. Each job names a room to join and the
// identity and token to join it with; the agent runs one session per
// job.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roymercy27-cyber/jarvis-agent/internal/buildinfo"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second

	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Job is one session assignment from the gateway.
type Job struct {
	RoomID   string `json:"room_id"`
	Identity string `json:"identity"`
	Token    string `json:"token"`
}

// Client maintains the worker's registration with the gateway.
type Client struct {
	url      string
	apiKey   string
	worker   string
	logger   *slog.Logger
	jobs     chan Job
	dials    atomic.Int64
}

// NewClient creates a gateway client. worker names this process in the
// gateway's worker pool.
func NewClient(gatewayURL, apiKey, worker string, logger *slog.Logger) *Client {
	return &Client{
		url:    gatewayURL,
		apiKey: apiKey,
		worker: worker,
		logger: logger,
		jobs:   make(chan Job, 4),
	}
}

// Jobs returns the stream of session assignments. The channel closes
// when Run returns.
func (c *Client) Jobs() <-chan Job {
	return c.jobs
}

// Run connects to the gateway and keeps the registration alive,
// reconnecting with backoff until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.jobs)

	backoff := initialBackoff
	for {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("gateway connection lost, reconnecting",
			"error", err,
			"backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// runOnce dials, registers, and dispatches jobs until the connection
// drops or ctx is cancelled.
func (c *Client) runOnce(ctx context.Context) error {
	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("parse gateway URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}

	header := map[string][]string{}
	if c.apiKey != "" {
		header["Authorization"] = []string{"Bearer " + c.apiKey}
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close()
	c.dials.Add(1)

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err = conn.WriteJSON(map[string]any{
		"type":    "register",
		"worker":  c.worker,
		"version": buildinfo.Version,
	})
	if err != nil {
		return fmt.Errorf("register with gateway: %w", err)
	}
	c.logger.Info("registered with gateway", "worker", c.worker)

	// Unblock the read loop when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var msg struct {
			Type string `json:"type"`
			Job
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read from gateway: %w", err)
		}

		switch msg.Type {
		case "job":
			if msg.RoomID == "" {
				c.logger.Warn("ignoring job without room_id")
				continue
			}
			c.logger.Info("job received", "room", msg.RoomID, "identity", msg.Identity)
			select {
			case c.jobs <- msg.Job:
			case <-ctx.Done():
				return ctx.Err()
			}
		case "ping":
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(map[string]any{"type": "pong"}); err != nil {
				return fmt.Errorf("answer gateway ping: %w", err)
			}
		default:
			c.logger.Debug("unhandled gateway message", "type", msg.Type)
		}
	}
}

// Dials reports how many times the client has connected. Used to
// observe reconnect behavior.
func (c *Client) Dials() int64 {
	return c.dials.Load()
}
