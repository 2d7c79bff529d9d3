package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jarvis.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
realtime:
  url: wss://realtime.example.com/v1
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Listen.Port != 8815 {
		t.Errorf("listen.port = %d, want 8815", cfg.Listen.Port)
	}
	if cfg.Realtime.Voice != "Charon" {
		t.Errorf("realtime.voice = %q, want Charon", cfg.Realtime.Voice)
	}
	if cfg.Realtime.Temperature != 0.8 {
		t.Errorf("realtime.temperature = %v, want 0.8", cfg.Realtime.Temperature)
	}
	if cfg.Realtime.EndpointingDelayMs != 500 {
		t.Errorf("endpointing_delay_ms = %d, want 500", cfg.Realtime.EndpointingDelayMs)
	}
	if cfg.Memory.FlushGrace != 5*time.Second {
		t.Errorf("memory.flush_grace = %v, want 5s", cfg.Memory.FlushGrace)
	}
	if cfg.Session.Timezone != "Africa/Nairobi" {
		t.Errorf("session.timezone = %q, want Africa/Nairobi", cfg.Session.Timezone)
	}
	if cfg.Email.SMTP.Host != "smtp.gmail.com" || cfg.Email.SMTP.Port != 587 {
		t.Errorf("smtp defaults = %s:%d, want smtp.gmail.com:587", cfg.Email.SMTP.Host, cfg.Email.SMTP.Port)
	}
	if !cfg.Email.SMTP.StartTLS {
		t.Error("smtp.starttls should default true on port 587")
	}
}

func TestLoadMissingRealtimeURL(t *testing.T) {
	_, err := Load(writeConfig(t, "log_level: debug\n"))
	if err == nil {
		t.Fatal("expected error for missing realtime.url")
	}
}

func TestLoadMemoryRequiresOwner(t *testing.T) {
	_, err := Load(writeConfig(t, minimalConfig+`
memory:
  base_url: https://api.mem0.ai
`))
	if err == nil {
		t.Fatal("expected error when memory.base_url is set without owner_id")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEM0_API_KEY", "mk-test")
	t.Setenv("JARVIS_OWNER", "Ivan")
	t.Setenv("GMAIL_USER", "ivan@example.com")
	t.Setenv("GMAIL_APP_PASSWORD", "app-pass")

	cfg, err := Load(writeConfig(t, minimalConfig+`
memory:
  base_url: https://api.mem0.ai
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Memory.APIKey != "mk-test" {
		t.Errorf("memory.api_key = %q, want mk-test", cfg.Memory.APIKey)
	}
	if cfg.Memory.OwnerID != "Ivan" {
		t.Errorf("memory.owner_id = %q, want Ivan", cfg.Memory.OwnerID)
	}
	if cfg.Email.SMTP.Username != "ivan@example.com" {
		t.Errorf("smtp.username = %q, want ivan@example.com", cfg.Email.SMTP.Username)
	}
	if cfg.Email.SMTP.Password != "app-pass" {
		t.Errorf("smtp.password not taken from env")
	}
	if cfg.Email.From != "ivan@example.com" {
		t.Errorf("email.from should default to smtp username, got %q", cfg.Email.From)
	}
	if !cfg.Email.SMTP.Configured() {
		t.Error("smtp should report configured with env credentials")
	}
}

func TestFindConfigExplicitMissing(t *testing.T) {
	_, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for explicit missing path")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"TRACE", LevelTrace, false},
		{"Debug", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMemoryConfigured(t *testing.T) {
	var m MemoryConfig
	if m.Configured() {
		t.Error("zero MemoryConfig should not be configured")
	}
	m.BaseURL = "https://api.mem0.ai"
	m.OwnerID = "Ivan"
	if !m.Configured() {
		t.Error("expected configured")
	}
}
