package presence

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/roymercy27-cyber/jarvis-agent/internal/config"
)

type fakeStats struct {
	active int
	uptime time.Duration
}

func (f fakeStats) ActiveSessions() int   { return f.active }
func (f fakeStats) Uptime() time.Duration { return f.uptime }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTopics(t *testing.T) {
	p := New(config.PresenceConfig{Broker: "mqtt://broker:1883", DeviceName: "jarvis"}, nil, testLogger())

	if got := p.availabilityTopic(); got != "jarvis/jarvis/availability" {
		t.Errorf("availability topic = %q", got)
	}
	if got := p.stateTopic("activity"); got != "jarvis/jarvis/activity/state" {
		t.Errorf("state topic = %q", got)
	}
}

func TestCurrentStates(t *testing.T) {
	tests := []struct {
		name     string
		active   int
		activity string
	}{
		{"idle", 0, "idle"},
		{"one session", 1, "busy"},
		{"several sessions", 3, "busy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(config.PresenceConfig{DeviceName: "jarvis"}, fakeStats{active: tt.active, uptime: 90 * time.Second}, testLogger())
			states := p.currentStates()
			if states["activity"] != tt.activity {
				t.Errorf("activity = %q, want %q", states["activity"], tt.activity)
			}
			if states["uptime"] != "1m30s" {
				t.Errorf("uptime = %q", states["uptime"])
			}
		})
	}
}

func TestStartRejectsBadBrokerURL(t *testing.T) {
	p := New(config.PresenceConfig{Broker: "://nope"}, nil, testLogger())
	if err := p.Start(t.Context()); err == nil {
		t.Fatal("expected error for malformed broker URL")
	}
}
