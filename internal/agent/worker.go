// Package agent runs the worker loop: it takes jobs from the gateway
// and drives one session controller per job, with the tool providers,
// memory store, and archive shared across sessions.
package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roymercy27-cyber/jarvis-agent/internal/archive"
	"github.com/roymercy27-cyber/jarvis-agent/internal/config"
	"github.com/roymercy27-cyber/jarvis-agent/internal/gateway"
	"github.com/roymercy27-cyber/jarvis-agent/internal/httpapi"
	"github.com/roymercy27-cyber/jarvis-agent/internal/observability"
	"github.com/roymercy27-cyber/jarvis-agent/internal/realtime"
	"github.com/roymercy27-cyber/jarvis-agent/internal/session"
	"github.com/roymercy27-cyber/jarvis-agent/internal/tools"
)

// Worker hosts the per-job session controllers.
type Worker struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	memory    session.MemoryStore
	providers []tools.Provider
	archiver  *archive.Store
	startedAt time.Time

	// newTransport is swappable in tests.
	newTransport func(job gateway.Job) session.Transport

	mu     sync.Mutex
	active map[string]*activeSession
}

type activeSession struct {
	roomID     string
	controller *session.Controller
	startedAt  time.Time
}

// New creates a worker. memory and archiver may be nil.
func New(cfg *config.Config, memory session.MemoryStore, providers []tools.Provider, archiver *archive.Store, metrics *observability.Metrics, logger *slog.Logger) *Worker {
	w := &Worker{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		memory:    memory,
		providers: providers,
		archiver:  archiver,
		startedAt: time.Now(),
		active:    make(map[string]*activeSession),
	}
	w.newTransport = func(job gateway.Job) session.Transport {
		rtCfg := realtime.Config{
			URL:    cfg.Realtime.URL,
			APIKey: cfg.Realtime.APIKey,
			Model:  cfg.Realtime.Model,
		}
		// The gateway may mint a per-room token; it wins over the
		// static key.
		if job.Token != "" {
			rtCfg.APIKey = job.Token
		}
		return realtime.NewClient(rtCfg, logger.With("room", job.RoomID))
	}
	return w
}

// Run consumes jobs until the channel closes or ctx is cancelled.
// Each job runs in its own goroutine; Run returns after all in-flight
// sessions have drained.
func (w *Worker) Run(ctx context.Context, jobs <-chan gateway.Job) {
	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case job, ok := <-jobs:
			if !ok {
				wg.Wait()
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.HandleJob(ctx, job)
			}()
		}
	}
}

// HandleJob runs one complete session for a job.
func (w *Worker) HandleJob(ctx context.Context, job gateway.Job) {
	logger := w.logger.With("room", job.RoomID)

	// Providers are queried per session so a recovered extension
	// service contributes again without a worker restart.
	registry := tools.BuildRegistry(ctx, logger, w.providers...)

	ctl := session.NewController(session.Config{
		OwnerID:           w.cfg.Memory.OwnerID,
		OwnerName:         w.cfg.Session.OwnerName,
		Voice:             w.cfg.Realtime.Voice,
		Temperature:       w.cfg.Realtime.Temperature,
		EndpointingDelay:  time.Duration(w.cfg.Realtime.EndpointingDelayMs) * time.Millisecond,
		NoiseCancellation: w.cfg.Realtime.NoiseCancellation,
		FlushGrace:        w.cfg.Memory.FlushGrace,
	}, w.newTransport(job), w.memory, registry, logger)
	ctl.WithMetrics(w.metrics)
	if w.archiver != nil {
		ctl.WithArchiver(w.archiver)
	}

	id := ctl.ID.String()
	w.mu.Lock()
	w.active[id] = &activeSession{roomID: job.RoomID, controller: ctl, startedAt: time.Now()}
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		delete(w.active, id)
		w.mu.Unlock()
	}()

	logger.Info("session starting", "session", id, "identity", job.Identity)
	if err := ctl.Run(ctx); err != nil {
		logger.Error("session failed", "session", id, "error", err)
		return
	}
	logger.Info("session finished", "session", id)
}

// Sessions implements httpapi.StatusSource.
func (w *Worker) Sessions() []httpapi.SessionInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]httpapi.SessionInfo, 0, len(w.active))
	for id, s := range w.active {
		out = append(out, httpapi.SessionInfo{
			ID:        id,
			RoomID:    s.roomID,
			State:     s.controller.State().String(),
			StartedAt: s.startedAt,
		})
	}
	return out
}

// ActiveSessions implements presence.StatsSource.
func (w *Worker) ActiveSessions() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.active)
}

// Uptime implements presence.StatsSource.
func (w *Worker) Uptime() time.Duration {
	return time.Since(w.startedAt)
}
