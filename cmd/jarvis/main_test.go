package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roymercy27-cyber/jarvis-agent/internal/buildinfo"
)

func TestRunVersionText(t *testing.T) {
	var buf bytes.Buffer
	if err := run(context.Background(), &buf, &buf, []string{"version"}); err != nil {
		t.Fatalf("run version failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Jarvis") {
		t.Errorf("version output missing banner: %q", out)
	}
	if !strings.Contains(out, buildinfo.Version) {
		t.Errorf("version output missing version %q: %q", buildinfo.Version, out)
	}
}

func TestRunVersionJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := run(context.Background(), &buf, &buf, []string{"-o", "json", "version"}); err != nil {
		t.Fatalf("run version failed: %v", err)
	}

	var info map[string]string
	if err := json.Unmarshal(buf.Bytes(), &info); err != nil {
		t.Fatalf("version output is not JSON: %v\n%s", err, buf.String())
	}
	if info["version"] != buildinfo.Version {
		t.Errorf("version = %q, want %q", info["version"], buildinfo.Version)
	}
	if info["go_version"] == "" {
		t.Error("go_version missing from JSON output")
	}
}

func TestRunNoCommandPrintsUsage(t *testing.T) {
	var buf bytes.Buffer
	if err := run(context.Background(), &buf, &buf, nil); err != nil {
		t.Fatalf("run with no args failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Usage: jarvis") {
		t.Errorf("expected usage text, got %q", buf.String())
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	var buf bytes.Buffer
	err := run(context.Background(), &buf, &buf, []string{"bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("expected unknown command error, got %v", err)
	}
}

func TestRunRejectsUnknownFlag(t *testing.T) {
	var buf bytes.Buffer
	err := run(context.Background(), &buf, &buf, []string{"-bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Errorf("expected unknown flag error, got %v", err)
	}
}

func TestRunRejectsBadOutputFormat(t *testing.T) {
	var buf bytes.Buffer
	err := run(context.Background(), &buf, &buf, []string{"-o", "yaml", "version"})
	if err == nil || !strings.Contains(err.Error(), "output format") {
		t.Errorf("expected output format error, got %v", err)
	}
}

func TestFlagEqualsSyntax(t *testing.T) {
	var buf bytes.Buffer
	if err := run(context.Background(), &buf, &buf, []string{"-o=json", "version"}); err != nil {
		t.Fatalf("run -o=json version failed: %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Errorf("-o=json did not produce JSON: %q", buf.String())
	}
}

func TestServeRequiresGatewayURL(t *testing.T) {
	path := writeConfig(t, `
realtime:
  url: https://model.example/v1/realtime
`)

	var buf bytes.Buffer
	err := run(context.Background(), &buf, &buf, []string{"-config", path, "serve"})
	if err == nil || !strings.Contains(err.Error(), "gateway.url") {
		t.Errorf("expected gateway.url error, got %v", err)
	}
}

func TestMemoriesRequiresConfiguration(t *testing.T) {
	path := writeConfig(t, `
realtime:
  url: https://model.example/v1/realtime
`)

	var buf bytes.Buffer
	err := run(context.Background(), &buf, &buf, []string{"-config", path, "memories", "dump"})
	if err == nil || !strings.Contains(err.Error(), "memory service not configured") {
		t.Errorf("expected unconfigured memory error, got %v", err)
	}
}

func TestBuildBuiltinTools(t *testing.T) {
	path := writeConfig(t, `
realtime:
  url: https://model.example/v1/realtime
session:
  timezone: UTC
`)

	cfg, _, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	list, err := buildBuiltinTools(cfg, logger)
	if err != nil {
		t.Fatalf("buildBuiltinTools failed: %v", err)
	}

	names := map[string]bool{}
	for _, tool := range list {
		names[tool.Name] = true
	}
	for _, want := range []string{"get_time", "get_weather", "web_search", "read_url", "send_email"} {
		if !names[want] {
			t.Errorf("builtin tool %q missing (have %v)", want, names)
		}
	}
	// No IMAP credentials, so the inbox tool must be absent.
	if names["inbox_status"] {
		t.Error("inbox_status registered without IMAP configuration")
	}
}

func TestBuildBuiltinToolsRejectsBadTimezone(t *testing.T) {
	path := writeConfig(t, `
realtime:
  url: https://model.example/v1/realtime
session:
  timezone: Not/AZone
`)

	cfg, _, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if _, err := buildBuiltinTools(cfg, logger); err == nil {
		t.Error("expected error for invalid timezone")
	}
}

// writeConfig writes a config file into a temp directory and returns
// its path.
func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jarvis.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
