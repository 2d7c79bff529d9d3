package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roymercy27-cyber/jarvis-agent/internal/memstore"
	"github.com/roymercy27-cyber/jarvis-agent/internal/observability"
	"github.com/roymercy27-cyber/jarvis-agent/internal/prompts"
	"github.com/roymercy27-cyber/jarvis-agent/internal/realtime"
	"github.com/roymercy27-cyber/jarvis-agent/internal/tools"
)

// DefaultFlushGrace bounds the end-of-session memory flush.
const DefaultFlushGrace = 5 * time.Second

// Config carries the per-session parameters.
type Config struct {
	OwnerID           string
	OwnerName         string
	Voice             string
	Temperature       float64
	EndpointingDelay  time.Duration
	NoiseCancellation bool
	FlushGrace        time.Duration
}

// Controller runs one session from connect to flush.
type Controller struct {
	ID  uuid.UUID
	cfg Config

	transport Transport
	memory    MemoryStore
	registry  *tools.Registry
	archiver  Archiver
	metrics   *observability.Metrics
	logger    *slog.Logger

	state atomic.Int32

	mu        sync.Mutex
	turns     []Turn
	snapshot  string
	startedAt time.Time
	endedAt   time.Time
}

// NewController creates a controller for one session. memory, archiver,
// and metrics may be nil; the session then runs without that concern.
func NewController(cfg Config, transport Transport, memory MemoryStore, registry *tools.Registry, logger *slog.Logger) *Controller {
	if cfg.FlushGrace <= 0 {
		cfg.FlushGrace = DefaultFlushGrace
	}
	id := uuid.New()
	return &Controller{
		ID:        id,
		cfg:       cfg,
		transport: transport,
		memory:    memory,
		registry:  registry,
		logger:    logger.With("session", id.String()),
	}
}

// WithArchiver attaches a transcript archiver.
func (c *Controller) WithArchiver(a Archiver) *Controller {
	c.archiver = a
	return c
}

// WithMetrics attaches the worker's instruments.
func (c *Controller) WithMetrics(m *observability.Metrics) *Controller {
	c.metrics = m
	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Snapshot returns the frozen memory rendering injected at start.
func (c *Controller) Snapshot() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Turns returns a copy of the turn log.
func (c *Controller) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Run drives the session to completion. It returns an error only for
// the fatal connect path; every later failure degrades and the
// session still drains and flushes.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	c.startedAt = time.Now()
	c.mu.Unlock()

	// Connect. Failure here is fatal: nothing was said, nothing is
	// flushed.
	c.setState(StateConnecting)
	if err := c.transport.Connect(ctx); err != nil {
		c.setState(StateClosed)
		c.event("connect_failed")
		return fmt.Errorf("session connect: %w", err)
	}
	defer c.transport.Close()
	c.event("connected")

	// Load the owner's memories. A dead memory service means an
	// uninformed session, not a failed one.
	c.setState(StateContextLoading)
	var records []memstore.Record
	if c.memory != nil {
		var err error
		records, err = c.memory.FetchAll(ctx, c.cfg.OwnerID)
		if err != nil {
			c.logger.Warn("memory fetch failed, starting without context", "error", err)
			c.event("memory_fetch_failed")
			records = nil
		}
	}
	preamble, snapshot := prompts.BuildPreamble(records)
	c.mu.Lock()
	c.snapshot = snapshot
	c.mu.Unlock()

	// Declare the tool set and session parameters. The registry was
	// already assembled by the caller, so a failed tool provider has
	// degraded before this point.
	c.setState(StateToolsReady)
	opts := realtime.SessionOptions{
		Instructions:      prompts.AgentInstruction(c.cfg.OwnerName),
		Voice:             c.cfg.Voice,
		Temperature:       c.cfg.Temperature,
		EndpointingDelay:  c.cfg.EndpointingDelay,
		NoiseCancellation: c.cfg.NoiseCancellation,
	}
	if c.registry != nil {
		opts.Tools = c.registry.Definitions()
	}
	if err := c.transport.ConfigureSession(opts); err != nil {
		c.setState(StateClosed)
		c.event("configure_failed")
		return fmt.Errorf("session configure: %w", err)
	}
	// Background fact, not a conversational turn: the model must not
	// treat stored memories as something the user just said.
	if preamble != "" {
		if err := c.transport.InjectMessage(RoleSystem, preamble); err != nil {
			c.logger.Warn("context injection failed, starting without memories", "error", err)
			c.mu.Lock()
			c.snapshot = ""
			c.mu.Unlock()
		}
	}

	// Go live and greet. The session must never sit silent waiting
	// for the user, so a failed greeting request falls back to a
	// canned line.
	c.setState(StateLive)
	c.event("live")
	if c.metrics != nil {
		c.metrics.ActiveSessions.Inc()
		defer c.metrics.ActiveSessions.Dec()
	}
	if err := c.transport.CreateResponse(prompts.SessionInstruction(c.cfg.OwnerName)); err != nil {
		c.logger.Warn("greeting request failed, using fallback", "error", err)
		fallback := "Say exactly this and nothing else: " + prompts.FallbackGreeting(c.cfg.OwnerName)
		if err := c.transport.CreateResponse(fallback); err != nil {
			c.logger.Error("unable to produce opening utterance", "error", err)
		}
	}

	c.eventLoop(ctx)

	// Drain: freeze the turn log and format what the session learned.
	c.setState(StateDraining)
	c.event("draining")
	c.mu.Lock()
	c.endedAt = time.Now()
	c.mu.Unlock()
	messages := FormatMessages(c.Turns(), c.Snapshot())

	c.setState(StateClosed)
	c.flush(messages)
	c.archive()

	if c.metrics != nil {
		c.metrics.SessionDuration.Observe(time.Since(c.startedAt).Seconds())
	}
	c.event("closed")
	return nil
}

// eventLoop consumes transport events until disconnect or cancel.
func (c *Controller) eventLoop(ctx context.Context) {
	var pending strings.Builder
	var toolCalls sync.WaitGroup
	events := c.transport.Events()

loop:
	for {
		select {
		case <-ctx.Done():
			// Closing the transport makes the event channel drain
			// and close, so the reader goroutine is not leaked.
			c.transport.Close()
			for range events {
			}
			break loop

		case ev, ok := <-events:
			if !ok {
				break loop
			}
			switch ev.Type {
			case realtime.EventTranscript:
				c.onTranscript(ev, &pending)

			case realtime.EventFunctionCall:
				toolCalls.Add(1)
				go c.handleToolCall(ctx, ev, &toolCalls)

			case realtime.EventError:
				c.logger.Warn("realtime error", "error", ev.Err)

			case realtime.EventDisconnect:
				c.logger.Info("transport disconnected", "error", ev.Err)
				break loop
			}
		}
	}

	toolCalls.Wait()

	// An interrupted assistant response leaves fragments behind. They
	// were spoken, so they belong in the log.
	if pending.Len() > 0 {
		c.append(RoleAssistant, pending.String())
	}
}

// onTranscript folds transcript events into the turn log. User turns
// arrive complete; assistant turns arrive as fragments followed by an
// authoritative final rendering.
func (c *Controller) onTranscript(ev realtime.Event, pending *strings.Builder) {
	if ev.Role == RoleUser {
		if ev.Final && ev.Text != "" {
			c.append(RoleUser, ev.Text)
		}
		return
	}

	if !ev.Final {
		pending.WriteString(ev.Text)
		return
	}
	text := ev.Text
	if text == "" {
		text = pending.String()
	}
	pending.Reset()
	if text != "" {
		c.append(RoleAssistant, text)
	}
}

// handleToolCall executes a tool and returns its output to the model.
// Tool failures are delivered as text so the model can relay them;
// cancellation abandons the call without touching the turn log.
func (c *Controller) handleToolCall(ctx context.Context, ev realtime.Event, wg *sync.WaitGroup) {
	defer wg.Done()

	var out string
	var err error
	if c.registry == nil {
		err = &tools.ErrToolUnavailable{ToolName: ev.Name}
	} else {
		out, err = c.registry.Execute(ctx, ev.Name, ev.ArgsJSON)
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		out = fmt.Sprintf("Error: %v", err)
		c.logger.Warn("tool call failed", "tool", ev.Name, "error", err)
	}
	if c.metrics != nil {
		c.metrics.ToolCalls.WithLabelValues(ev.Name, outcome).Inc()
	}

	if ctx.Err() != nil {
		return
	}
	if err := c.transport.SendFunctionResult(ev.CallID, out); err != nil {
		c.logger.Warn("returning tool result failed", "tool", ev.Name, "error", err)
	}
}

// flush appends the session's conversation to long-term memory. The
// flush runs on a detached context so a cancelled session still gets
// its bounded grace period, and failures are logged and swallowed.
func (c *Controller) flush(messages []memstore.Message) {
	if c.memory == nil || len(messages) == 0 {
		c.flushOutcome("skipped")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FlushGrace)
	defer cancel()

	if err := c.memory.Append(ctx, c.cfg.OwnerID, messages); err != nil {
		c.logger.Warn("memory flush failed", "messages", len(messages), "error", err)
		c.flushOutcome("failed")
		return
	}
	c.logger.Info("memory flushed", "messages", len(messages))
	c.flushOutcome("ok")
}

func (c *Controller) archive() {
	if c.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.FlushGrace)
	defer cancel()

	c.mu.Lock()
	startedAt, endedAt := c.startedAt, c.endedAt
	c.mu.Unlock()

	err := c.archiver.SaveSession(ctx, c.ID.String(), c.cfg.OwnerID, startedAt, endedAt, c.Turns())
	if err != nil {
		c.logger.Warn("transcript archive failed", "error", err)
	}
}

func (c *Controller) append(role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, Turn{Role: role, Content: content, Timestamp: time.Now()})
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
	c.logger.Debug("session state", "state", s.String())
}

func (c *Controller) event(name string) {
	if c.metrics != nil {
		c.metrics.SessionEvents.WithLabelValues(name).Inc()
	}
}

func (c *Controller) flushOutcome(outcome string) {
	if c.metrics != nil {
		c.metrics.MemoryFlushes.WithLabelValues(outcome).Inc()
	}
}

// FormatMessages reduces the turn log to what is worth remembering:
// user and assistant turns only, minus anything that restates the
// injected memory snapshot. Re-saving the snapshot would compound the
// same facts across sessions.
func FormatMessages(turns []Turn, snapshot string) []memstore.Message {
	var out []memstore.Message
	for _, t := range turns {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			continue
		}
		if snapshot != "" && strings.Contains(t.Content, snapshot) {
			continue
		}
		out = append(out, memstore.Message{Role: t.Role, Content: t.Content})
	}
	return out
}
