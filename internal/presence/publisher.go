// Package presence publishes the worker's availability and session
// activity to an MQTT broker so dashboards and home automations can
// see whether the assistant is online and busy.
//
// The publisher uses Eclipse Paho v2's [autopaho] package for
// connection management with automatic reconnection. A will message
// flips the availability topic to "offline" on unexpected disconnects;
// a birth message flips it back on every (re-)connect.
package presence

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/roymercy27-cyber/jarvis-agent/internal/buildinfo"
	"github.com/roymercy27-cyber/jarvis-agent/internal/config"
)

// DefaultPublishInterval is how often session state is pushed.
const DefaultPublishInterval = 30 * time.Second

// StatsSource provides the runtime data behind the published states.
// The concrete adapter is wired in main to keep this package decoupled
// from the agent loop.
type StatsSource interface {
	// ActiveSessions returns the count of live voice sessions.
	ActiveSessions() int
	// Uptime returns the process uptime.
	Uptime() time.Duration
}

// Publisher manages the MQTT connection and the periodic state loop.
type Publisher struct {
	cfg      config.PresenceConfig
	stats    StatsSource
	logger   *slog.Logger
	interval time.Duration
	cm       *autopaho.ConnectionManager
}

// New creates a Publisher but does not connect. Call [Publisher.Start]
// to begin the connection and publish loop.
func New(cfg config.PresenceConfig, stats StatsSource, logger *slog.Logger) *Publisher {
	return &Publisher{
		cfg:      cfg,
		stats:    stats,
		logger:   logger,
		interval: DefaultPublishInterval,
	}
}

// Start connects to the broker and blocks publishing state until ctx
// is cancelled.
func (p *Publisher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	availTopic := p.availabilityTopic()

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   availTopic,
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			p.logger.Info("presence connected to broker", "broker", p.cfg.Broker)
			p.publish(ctx, cm, availTopic, "online", 1)
			p.publish(ctx, cm, p.stateTopic("version"), buildinfo.Version, 1)
		},
		OnConnectError: func(err error) {
			p.logger.Warn("presence connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "jarvis-" + p.cfg.DeviceName,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.cm = cm

	connCtx, connCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		// autopaho keeps retrying in the background.
		p.logger.Warn("presence initial connection timed out, will retry", "error", err)
	}

	p.runLoop(ctx)
	return nil
}

// Stop publishes "offline" and disconnects. The context bounds how
// long to wait for the final publish.
func (p *Publisher) Stop(ctx context.Context) error {
	if p.cm == nil {
		return nil
	}
	p.publish(ctx, p.cm, p.availabilityTopic(), "offline", 1)
	return p.cm.Disconnect(ctx)
}

func (p *Publisher) baseTopic() string {
	return "jarvis/" + p.cfg.DeviceName
}

func (p *Publisher) availabilityTopic() string {
	return p.baseTopic() + "/availability"
}

func (p *Publisher) stateTopic(entity string) string {
	return p.baseTopic() + "/" + entity + "/state"
}

func (p *Publisher) runLoop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.publishStates(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishStates(ctx)
		}
	}
}

func (p *Publisher) publishStates(ctx context.Context) {
	if p.cm == nil || p.stats == nil {
		return
	}

	states := p.currentStates()
	for entity, value := range states {
		p.publish(ctx, p.cm, p.stateTopic(entity), value, 0)
	}
	p.logger.Debug("presence states published", "entities", len(states))
}

// currentStates renders the per-entity state payloads.
func (p *Publisher) currentStates() map[string]string {
	active := p.stats.ActiveSessions()
	activity := "idle"
	if active > 0 {
		activity = "busy"
	}
	return map[string]string{
		"active_sessions": strconv.Itoa(active),
		"activity":        activity,
		"uptime":          p.stats.Uptime().Truncate(time.Second).String(),
	}
}

func (p *Publisher) publish(ctx context.Context, cm *autopaho.ConnectionManager, topic, payload string, qos byte) {
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: []byte(payload),
		QoS:     qos,
		Retain:  true,
	}); err != nil {
		p.logger.Debug("presence publish failed", "topic", topic, "error", err)
	}
}
