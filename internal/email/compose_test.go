package email

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestComposeMessage(t *testing.T) {
	msg, err := ComposeMessage(ComposeOptions{
		From:    "Jarvis <jarvis@example.com>",
		To:      []string{"ivan@example.com"},
		Cc:      []string{"boss@example.com"},
		Subject: "Status report",
		Body:    "# Summary\n\nAll systems **nominal**.",
	})
	if err != nil {
		t.Fatalf("ComposeMessage: %v", err)
	}

	raw := string(msg)
	for _, want := range []string{
		"From: \"Jarvis\" <jarvis@example.com>",
		"To: <ivan@example.com>",
		"Cc: <boss@example.com>",
		"Subject: Status report",
		"multipart/alternative",
		"text/plain",
		"text/html",
		"Message-Id:",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestComposeMessageBadAddress(t *testing.T) {
	_, err := ComposeMessage(ComposeOptions{
		From:    "not an address",
		To:      []string{"ivan@example.com"},
		Subject: "x",
		Body:    "y",
	})
	if err == nil {
		t.Fatal("expected error for unparseable from address")
	}
}

func TestMarkdownToPlain(t *testing.T) {
	got := markdownToPlain("# Title\n\nSee [docs](https://example.com) for **details**.")
	if strings.Contains(got, "#") || strings.Contains(got, "**") {
		t.Errorf("markdown syntax left in plain text: %q", got)
	}
	if !strings.Contains(got, "docs (https://example.com)") {
		t.Errorf("link not flattened: %q", got)
	}
}

func TestSenderNotConfigured(t *testing.T) {
	s := NewSender(Config{}, nil)
	err := s.Send(context.Background(), ComposeOptions{
		To:      []string{"ivan@example.com"},
		Subject: "x",
		Body:    "y",
	})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}
	cfg.SMTP.Username = "ivan@example.com"
	cfg.ApplyDefaults()

	if cfg.SMTP.Host != "smtp.gmail.com" || cfg.SMTP.Port != 587 || !cfg.SMTP.StartTLS {
		t.Errorf("smtp defaults = %+v", cfg.SMTP)
	}
	if cfg.IMAP.Port != 993 || !cfg.IMAP.TLS {
		t.Errorf("imap defaults = %+v", cfg.IMAP)
	}
	if cfg.From != "ivan@example.com" {
		t.Errorf("from default = %q", cfg.From)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	cfg.SMTP.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for out-of-range smtp port")
	}
}

func TestExtractAddress(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Ivan <ivan@example.com>", "ivan@example.com"},
		{"ivan@example.com", "ivan@example.com"},
	}
	for _, tt := range tests {
		if got := extractAddress(tt.in); got != tt.want {
			t.Errorf("extractAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
