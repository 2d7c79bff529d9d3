// Package realtime implements the WebSocket client for the hosted
// speech-to-speech model session. It handles session configuration,
// conversation item injection, and the tool call round trip, surfacing
// everything else as events.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultHandshakeTimeout bounds the dial plus the wait for the
	// server's session.created acknowledgement.
	DefaultHandshakeTimeout = 10 * time.Second

	readTimeout      = 120 * time.Second
	writeTimeout     = 10 * time.Second
	keepAliveEvery   = 30 * time.Second
	eventsBufferSize = 100
)

// Config holds the connection parameters for a realtime session.
type Config struct {
	URL              string
	APIKey           string
	Model            string
	HandshakeTimeout time.Duration
}

// SessionOptions configures the live session after connect.
type SessionOptions struct {
	Instructions      string
	Voice             string
	Temperature       float64
	EndpointingDelay  time.Duration
	NoiseCancellation bool
	Tools             []map[string]any
}

// Client manages one WebSocket connection to the realtime service.
type Client struct {
	cfg    Config
	logger *slog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	events chan Event
	closed atomic.Bool
}

// NewClient creates a realtime client. Connect must be called before
// any other method.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		events: make(chan Event, eventsBufferSize),
	}
}

// Connect dials the realtime service and waits for the server to
// acknowledge the session. It returns only after the session is
// confirmed live, so a nil return means the connection is usable.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("parse realtime URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	if c.cfg.Model != "" {
		q := u.Query()
		q.Set("model", c.cfg.Model)
		u.RawQuery = q.Encode()
	}

	header := map[string][]string{}
	if c.cfg.APIKey != "" {
		header["Authorization"] = []string{"Bearer " + c.cfg.APIKey}
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("dial realtime service: %w", err)
	}

	// The session is not usable until the server says so.
	conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			conn.Close()
			return fmt.Errorf("waiting for session acknowledgement: %w", err)
		}
		msgType, _ := msg["type"].(string)
		if msgType == "session.created" {
			break
		}
		if msgType == "error" {
			conn.Close()
			return fmt.Errorf("realtime service rejected session: %s", errorMessage(msg))
		}
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.logger.Debug("realtime session established", "url", u.Host)

	go c.readLoop(conn)
	go c.keepAlive(conn)
	return nil
}

// Events returns the event stream. The channel closes after an
// EventDisconnect is delivered.
func (c *Client) Events() <-chan Event {
	return c.events
}

// ConfigureSession applies instructions, voice, and the tool set.
func (c *Client) ConfigureSession(opts SessionOptions) error {
	endpointingMs := int(opts.EndpointingDelay / time.Millisecond)
	if endpointingMs <= 0 {
		endpointingMs = 500
	}

	session := map[string]any{
		"modalities":          []string{"text", "audio"},
		"instructions":        opts.Instructions,
		"voice":               opts.Voice,
		"input_audio_format":  "pcm16",
		"output_audio_format": "pcm16",
		"temperature":         opts.Temperature,
		"turn_detection": map[string]any{
			"type":                "server_vad",
			"silence_duration_ms": endpointingMs,
		},
		"tool_choice": "auto",
	}
	if opts.Tools != nil {
		session["tools"] = opts.Tools
	}
	if opts.NoiseCancellation {
		session["input_audio_noise_reduction"] = map[string]any{"type": "far_field"}
	}

	return c.sendJSON(map[string]any{
		"type":    "session.update",
		"session": session,
	})
}

// InjectMessage adds a conversation item without triggering a
// response. Used to seed background context before the first turn.
func (c *Client) InjectMessage(role, text string) error {
	contentType := "input_text"
	if role == "assistant" {
		contentType = "text"
	}
	return c.sendJSON(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": role,
			"content": []map[string]any{
				{"type": contentType, "text": text},
			},
		},
	})
}

// CreateResponse asks the model to speak. Non-empty instructions apply
// to this response only.
func (c *Client) CreateResponse(instructions string) error {
	msg := map[string]any{"type": "response.create"}
	if instructions != "" {
		msg["response"] = map[string]any{"instructions": instructions}
	}
	return c.sendJSON(msg)
}

// SendFunctionResult returns a tool's output to the model and triggers
// the follow-up response.
func (c *Client) SendFunctionResult(callID, output string) error {
	err := c.sendJSON(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  output,
		},
	})
	if err != nil {
		return err
	}
	return c.sendJSON(map[string]any{"type": "response.create"})
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout))
		return c.conn.Close()
	}
	return nil
}

func (c *Client) sendJSON(v any) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil || c.closed.Load() {
		return fmt.Errorf("realtime: not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *Client) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(keepAliveEvery)
	defer ticker.Stop()

	for range ticker.C {
		if c.closed.Load() {
			return
		}
		c.connMu.Lock()
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		c.connMu.Unlock()
		if err != nil {
			return
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer close(c.events)

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				c.logger.Debug("realtime connection lost", "error", err)
			}
			c.events <- Event{Type: EventDisconnect, Err: err}
			return
		}

		var msg map[string]any
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		if ev, ok := c.translate(msg); ok {
			select {
			case c.events <- ev:
			default:
				// A stalled consumer must not wedge the read loop.
				c.logger.Warn("dropping realtime event, consumer too slow", "type", ev.Type)
			}
		}
	}
}

// translate maps a wire message to an Event. Messages with no caller
// significance return ok=false.
func (c *Client) translate(msg map[string]any) (Event, bool) {
	msgType, _ := msg["type"].(string)
	switch msgType {
	case "conversation.item.input_audio_transcription.completed":
		text, _ := msg["transcript"].(string)
		return Event{Type: EventTranscript, Role: "user", Text: text, Final: true}, true

	case "response.audio_transcript.delta":
		delta, _ := msg["delta"].(string)
		return Event{Type: EventTranscript, Role: "assistant", Text: delta}, true

	case "response.audio_transcript.done":
		text, _ := msg["transcript"].(string)
		return Event{Type: EventTranscript, Role: "assistant", Text: text, Final: true}, true

	case "response.done":
		return Event{Type: EventTurnDone}, true

	case "input_audio_buffer.speech_started":
		return Event{Type: EventInterrupted}, true

	case "response.function_call_arguments.done":
		callID, _ := msg["call_id"].(string)
		name, _ := msg["name"].(string)
		args, _ := msg["arguments"].(string)
		return Event{Type: EventFunctionCall, CallID: callID, Name: name, ArgsJSON: args}, true

	case "error":
		return Event{Type: EventError, Err: fmt.Errorf("realtime service error: %s", errorMessage(msg))}, true
	}
	return Event{}, false
}

func errorMessage(msg map[string]any) string {
	if errData, ok := msg["error"].(map[string]any); ok {
		if m, ok := errData["message"].(string); ok {
			return m
		}
	}
	return "unknown error"
}
