package email

import "fmt"

// Config holds the mail account configuration. It is embedded in the
// top-level Jarvis config under the "email" YAML key. One account
// covers both outbound SMTP and the optional inbox IMAP connection;
// credentials usually arrive through GMAIL_USER / GMAIL_APP_PASSWORD
// in the environment rather than this file.
type Config struct {
	SMTP SMTPConfig `yaml:"smtp"`
	IMAP IMAPConfig `yaml:"imap"`

	// From is the sender address for outbound mail. Defaults to the
	// SMTP username when empty.
	From string `yaml:"from"`
}

// SMTPConfig defines the outbound mail relay.
type SMTPConfig struct {
	Host     string `yaml:"host"`     // Default: "smtp.gmail.com"
	Port     int    `yaml:"port"`     // Default: 587
	StartTLS bool   `yaml:"starttls"` // Default: true unless port 465
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Configured reports whether outbound mail has the minimum credentials.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// IMAPConfig defines the optional inbox connection used by the
// inbox_status tool.
type IMAPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"` // Default: 993
	TLS      bool   `yaml:"tls"`  // Default: true unless port 143
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Configured reports whether the inbox connection is usable.
func (c IMAPConfig) Configured() bool {
	return c.Host != "" && c.Username != ""
}

// ApplyDefaults fills zero-value fields with sensible defaults.
// Called by the parent config's applyDefaults method.
func (c *Config) ApplyDefaults() {
	if c.SMTP.Host == "" {
		c.SMTP.Host = "smtp.gmail.com"
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if !c.SMTP.StartTLS && c.SMTP.Port != 465 {
		c.SMTP.StartTLS = true
	}
	if c.IMAP.Port == 0 {
		c.IMAP.Port = 993
	}
	if !c.IMAP.TLS && c.IMAP.Port != 143 {
		c.IMAP.TLS = true
	}
	if c.From == "" {
		c.From = c.SMTP.Username
	}
}

// Validate checks that the email configuration is internally
// consistent. Returns an error describing the first problem found.
func (c Config) Validate() error {
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("email.smtp.port %d out of range (1-65535)", c.SMTP.Port)
	}
	if c.IMAP.Port < 1 || c.IMAP.Port > 65535 {
		return fmt.Errorf("email.imap.port %d out of range (1-65535)", c.IMAP.Port)
	}
	return nil
}
