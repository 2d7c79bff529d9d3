// Package config handles Jarvis configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roymercy27-cyber/jarvis-agent/internal/email"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./jarvis.yaml, ~/.config/jarvis/config.yaml, /etc/jarvis/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"jarvis.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "jarvis", "config.yaml"))
	}

	paths = append(paths, "/etc/jarvis/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Jarvis configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Memory    MemoryConfig    `yaml:"memory"`
	Session   SessionConfig   `yaml:"session"`
	Search    SearchConfig    `yaml:"search"`
	Weather   WeatherConfig   `yaml:"weather"`
	Email     email.Config    `yaml:"email"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Presence  PresenceConfig  `yaml:"presence"`
	DataDir   string          `yaml:"data_dir"`
	LogLevel  string          `yaml:"log_level"`
}

// ListenConfig defines the health/metrics HTTP server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`    // Default: 8815
}

// Addr returns the address:port string for net listeners.
func (c ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

// GatewayConfig defines the job-dispatch gateway connection. The
// hosting framework assigns one job per connecting participant; the
// worker registers here and waits for assignments.
type GatewayConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	WorkerName string `yaml:"worker_name"` // Default: "jarvis"
}

// RealtimeConfig defines the hosted speech-to-speech model session.
type RealtimeConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`

	// Voice is the synthesis voice name (default: "Charon").
	Voice string `yaml:"voice"`

	// Temperature controls model sampling (default: 0.8).
	Temperature float64 `yaml:"temperature"`

	// EndpointingDelayMs is the silence threshold before the model
	// considers a user utterance finished. Shorter values give faster
	// turn-taking at the cost of more false endpoints (default: 500).
	EndpointingDelayMs int `yaml:"endpointing_delay_ms"`

	// NoiseCancellation enables server-side background voice removal.
	NoiseCancellation bool `yaml:"noise_cancellation"`
}

// MemoryConfig defines the remote long-term memory service.
type MemoryConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	// OwnerID is the stable identity under which memories are stored.
	OwnerID string `yaml:"owner_id"`

	// RequestTimeout bounds each fetch/append call (default: 10s).
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// FlushGrace bounds the end-of-session memory flush so a failed
	// save never delays process exit indefinitely (default: 5s).
	FlushGrace time.Duration `yaml:"flush_grace"`
}

// Configured reports whether the memory service can be reached at all.
// An unconfigured memory service is not an error; sessions simply run
// without personalization.
func (c MemoryConfig) Configured() bool {
	return c.BaseURL != "" && c.OwnerID != ""
}

// SessionConfig holds per-session behavior knobs.
type SessionConfig struct {
	// Timezone for the get_time tool (default: "Africa/Nairobi").
	Timezone string `yaml:"timezone"`

	// OwnerName is how the assistant addresses the user (default: "Sir").
	OwnerName string `yaml:"owner_name"`
}

// SearchConfig selects and configures web search providers.
type SearchConfig struct {
	// Primary is the provider used by default (default: "tavily").
	Primary string       `yaml:"primary"`
	Tavily  TavilyConfig `yaml:"tavily"`
	Brave   BraveConfig  `yaml:"brave"`
}

// TavilyConfig holds Tavily search API settings.
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// Configured reports whether a Tavily API key is set.
func (c TavilyConfig) Configured() bool { return c.APIKey != "" }

// BraveConfig holds Brave search API settings.
type BraveConfig struct {
	APIKey string `yaml:"api_key"`
}

// Configured reports whether a Brave API key is set.
func (c BraveConfig) Configured() bool { return c.APIKey != "" }

// WeatherConfig defines the weather-by-city service endpoint.
type WeatherConfig struct {
	// BaseURL is the wttr.in-compatible endpoint (default: "https://wttr.in").
	BaseURL string `yaml:"base_url"`
}

// DiscoveryConfig defines the optional remote tool-discovery service.
// When unreachable the worker degrades to the static tool set.
type DiscoveryConfig struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"` // Default: 5s
}

// Configured reports whether tool discovery is enabled.
func (c DiscoveryConfig) Configured() bool { return c.URL != "" }

// PresenceConfig defines the optional MQTT availability publisher.
type PresenceConfig struct {
	Broker     string `yaml:"broker"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	DeviceName string `yaml:"device_name"` // Default: "jarvis"
}

// Configured reports whether presence publishing is enabled.
func (c PresenceConfig) Configured() bool { return c.Broker != "" }

// Load reads, parses, and validates the config file at path.
// Environment overrides are applied after parsing so that secrets
// never need to live in the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.ApplyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

// ApplyEnv overlays environment variables onto the parsed config.
// The original deployment supplies every credential through the
// process environment, so env values win over file values.
func (c *Config) ApplyEnv() {
	setIfEnv(&c.Memory.APIKey, "MEM0_API_KEY")
	setIfEnv(&c.Memory.OwnerID, "JARVIS_OWNER")
	setIfEnv(&c.Search.Tavily.APIKey, "TAVILY_API_KEY")
	setIfEnv(&c.Search.Brave.APIKey, "BRAVE_API_KEY")
	setIfEnv(&c.Realtime.APIKey, "REALTIME_API_KEY")
	setIfEnv(&c.Gateway.APIKey, "GATEWAY_API_KEY")

	// Gmail-style mail credentials: one account used for both SMTP
	// and IMAP unless the file says otherwise.
	if user := os.Getenv("GMAIL_USER"); user != "" {
		c.Email.SMTP.Username = user
		if c.Email.IMAP.Username == "" {
			c.Email.IMAP.Username = user
		}
	}
	if pass := os.Getenv("GMAIL_APP_PASSWORD"); pass != "" {
		c.Email.SMTP.Password = pass
		if c.Email.IMAP.Password == "" {
			c.Email.IMAP.Password = pass
		}
	}
}

func setIfEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// applyDefaults fills zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8815
	}
	if c.Gateway.WorkerName == "" {
		c.Gateway.WorkerName = "jarvis"
	}
	if c.Realtime.Voice == "" {
		c.Realtime.Voice = "Charon"
	}
	if c.Realtime.Temperature == 0 {
		c.Realtime.Temperature = 0.8
	}
	if c.Realtime.EndpointingDelayMs == 0 {
		c.Realtime.EndpointingDelayMs = 500
	}
	if c.Memory.RequestTimeout == 0 {
		c.Memory.RequestTimeout = 10 * time.Second
	}
	if c.Memory.FlushGrace == 0 {
		c.Memory.FlushGrace = 5 * time.Second
	}
	if c.Session.Timezone == "" {
		c.Session.Timezone = "Africa/Nairobi"
	}
	if c.Session.OwnerName == "" {
		c.Session.OwnerName = "Sir"
	}
	if c.Search.Primary == "" {
		c.Search.Primary = "tavily"
	}
	if c.Weather.BaseURL == "" {
		c.Weather.BaseURL = "https://wttr.in"
	}
	c.Email.ApplyDefaults()
	if c.Discovery.Timeout == 0 {
		c.Discovery.Timeout = 5 * time.Second
	}
	if c.Presence.DeviceName == "" {
		c.Presence.DeviceName = "jarvis"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that the configuration is internally consistent.
// Returns an error describing the first problem found.
func (c *Config) Validate() error {
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range (1-65535)", c.Listen.Port)
	}
	if c.Realtime.URL == "" {
		return fmt.Errorf("realtime.url is required")
	}
	if c.Realtime.Temperature < 0 || c.Realtime.Temperature > 2 {
		return fmt.Errorf("realtime.temperature %.2f out of range (0-2)", c.Realtime.Temperature)
	}
	if c.Realtime.EndpointingDelayMs < 0 {
		return fmt.Errorf("realtime.endpointing_delay_ms must be >= 0")
	}
	if c.Memory.BaseURL != "" && c.Memory.OwnerID == "" {
		return fmt.Errorf("memory.owner_id is required when memory.base_url is set")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if err := c.Email.Validate(); err != nil {
		return err
	}
	return nil
}
