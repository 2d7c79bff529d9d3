// Jarvis is a memory-augmented voice assistant worker.
//
// It registers with a job-dispatch gateway, and for every assigned room
// it runs a full voice session against a hosted speech-to-speech model:
// long-term memories are loaded at session start, built-in and
// discovered tools are declared to the model, and the conversation is
// flushed back to the memory service when the session ends. A small
// HTTP server exposes health, status, and transcript endpoints.
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	jarvis serve              Start the worker
//	jarvis memories dump      Print every stored memory for the owner
//	jarvis memories seed ...  Store a fact with the memory service
//	jarvis version            Print version and build information
//	jarvis -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/roymercy27-cyber/jarvis-agent/internal/agent"
	"github.com/roymercy27-cyber/jarvis-agent/internal/archive"
	"github.com/roymercy27-cyber/jarvis-agent/internal/buildinfo"
	"github.com/roymercy27-cyber/jarvis-agent/internal/config"
	"github.com/roymercy27-cyber/jarvis-agent/internal/discovery"
	"github.com/roymercy27-cyber/jarvis-agent/internal/email"
	"github.com/roymercy27-cyber/jarvis-agent/internal/fetch"
	"github.com/roymercy27-cyber/jarvis-agent/internal/gateway"
	"github.com/roymercy27-cyber/jarvis-agent/internal/httpapi"
	"github.com/roymercy27-cyber/jarvis-agent/internal/memstore"
	"github.com/roymercy27-cyber/jarvis-agent/internal/observability"
	"github.com/roymercy27-cyber/jarvis-agent/internal/presence"
	"github.com/roymercy27-cyber/jarvis-agent/internal/search"
	"github.com/roymercy27-cyber/jarvis-agent/internal/session"
	"github.com/roymercy27-cyber/jarvis-agent/internal/tools"
	"github.com/roymercy27-cyber/jarvis-agent/internal/weather"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the jarvis command. All OS-level
// dependencies are injected as parameters:
//
//   - ctx controls the lifetime of the process. Cancelling it triggers
//     graceful shutdown of the gateway connection, active sessions, and
//     the HTTP server.
//   - stdout and stderr receive all program output. Structured logs go
//     to stdout; fatal error messages go to stderr.
//   - args is os.Args[1:] — the command-line arguments after the program
//     name. We parse these manually rather than using the flag package
//     to avoid global state that interferes with parallel tests.
//
// run returns nil on clean shutdown and a non-nil error for any failure.
// The caller (main) is responsible for printing the error and exiting.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// Parse arguments by hand. The flag package relies on package-level
	// globals (flag.CommandLine), which makes it impossible to call run()
	// concurrently from tests. Our argument surface is small enough that
	// manual parsing is clearer than bringing in a CLI framework.
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				// Collect remaining args as subcommand arguments.
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	// Default to human-readable text output.
	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "memories":
		return runMemories(ctx, stdout, stderr, configPath, cmdArgs, outputFmt)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// jarvis is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Jarvis - Memory-Augmented Voice Assistant Worker")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: jarvis [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve                Register with the gateway and serve voice sessions")
	fmt.Fprintln(w, "  memories dump        Print every stored memory for the configured owner")
	fmt.Fprintln(w, "  memories seed <fact> Store a fact with the memory service")
	fmt.Fprintln(w, "  version              Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./jarvis.yaml, ~/.config/jarvis/config.yaml, /etc/jarvis/config.yaml")
	return nil
}

// runServe handles the "jarvis serve" subcommand. It is the primary
// operating mode: loads config, opens the session archive, builds the
// tool providers, connects to the job gateway, and serves sessions
// until a shutdown signal arrives.
//
// The shutdown sequence is:
//  1. SIGINT or SIGTERM cancels the context
//  2. The gateway connection drops and the job channel closes
//  3. Active sessions drain and flush their transcripts to memory
//  4. The HTTP server and presence publisher stop via the same ctx
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting Jarvis", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Gateway.URL == "" {
		return fmt.Errorf("gateway.url is required to serve")
	}

	// Reconfigure logger now that we know the desired level. The initial
	// Info-level logger is used only for the startup banner; everything
	// after this point uses the configured level.
	{
		// ParseLogLevel is already validated by config.Validate(), so
		// this error path should be unreachable in practice.
		level, _ := config.ParseLogLevel(cfg.LogLevel)
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"gateway", cfg.Gateway.URL,
		"model", cfg.Realtime.Model,
	)

	// --- Data directory ---
	// The session archive (SQLite) lives under this directory.
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	// --- Session archive ---
	arch, err := archive.Open(filepath.Join(cfg.DataDir, "jarvis.db"))
	if err != nil {
		return fmt.Errorf("open session archive: %w", err)
	}
	defer arch.Close()

	// --- Memory service client ---
	// Optional. Without it sessions run fine, just unpersonalized.
	var memory session.MemoryStore
	if cfg.Memory.Configured() {
		memory = memstore.New(cfg.Memory.BaseURL, cfg.Memory.APIKey, cfg.Memory.RequestTimeout, logger)
		logger.Info("memory service configured", "owner", cfg.Memory.OwnerID)
	} else {
		logger.Warn("memory service not configured - sessions will not be personalized")
	}

	// --- Tool providers ---
	builtins, err := buildBuiltinTools(cfg, logger)
	if err != nil {
		return err
	}
	providers := []tools.Provider{tools.NewStaticProvider("builtin", builtins)}

	if cfg.Discovery.Configured() {
		headers := map[string]string{}
		if cfg.Discovery.APIKey != "" {
			headers["Authorization"] = "Bearer " + cfg.Discovery.APIKey
		}
		ext := discovery.NewClient("extensions", cfg.Discovery.URL, headers, logger)

		// Warn-only probe: discovery failures degrade per session, they
		// never block startup.
		pingCtx, pingCancel := context.WithTimeout(ctx, cfg.Discovery.Timeout)
		if err := ext.Ping(pingCtx); err != nil {
			logger.Warn("tool discovery unreachable at startup", "url", cfg.Discovery.URL, "error", err)
		}
		pingCancel()

		providers = append(providers, discovery.NewProvider(ext))
	}

	// --- Metrics ---
	metrics := observability.NewMetrics("jarvis", nil)

	// --- Worker and gateway ---
	worker := agent.New(cfg, memory, providers, arch, metrics, logger)
	gw := gateway.NewClient(cfg.Gateway.URL, cfg.Gateway.APIKey, cfg.Gateway.WorkerName, logger)

	// --- Signal handling and graceful shutdown ---
	// NotifyContext wraps the parent context so that SIGINT/SIGTERM
	// cancellation flows through the same ctx used by all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- HTTP server (health, status, metrics, transcripts) ---
	api := httpapi.New(worker, arch, logger)
	srv := &http.Server{Addr: cfg.Listen.Addr(), Handler: api.Router()}
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
		}
	}()

	// --- Presence publisher ---
	// Optional: publishes availability and activity state over MQTT.
	var pub *presence.Publisher
	if cfg.Presence.Configured() {
		pub = presence.New(cfg.Presence, worker, logger)
		if err := pub.Start(ctx); err != nil {
			logger.Error("presence publisher failed to start", "error", err)
			pub = nil
		}
	} else {
		logger.Info("presence publishing disabled (not configured)")
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if pub != nil {
			if err := pub.Stop(shutdownCtx); err != nil {
				logger.Error("presence shutdown failed", "error", err)
			}
		}
		_ = srv.Shutdown(shutdownCtx)
	}()

	// Maintain the gateway connection in the background; Run closes the
	// job channel when it returns, which lets the worker drain and exit.
	gwErr := make(chan error, 1)
	go func() { gwErr <- gw.Run(ctx) }()

	// Serve sessions until the job channel closes. Active sessions are
	// drained (and their transcripts flushed) before Run returns.
	worker.Run(ctx, gw.Jobs())

	if err := <-gwErr; err != nil && ctx.Err() == nil {
		return fmt.Errorf("gateway: %w", err)
	}

	logger.Info("Jarvis stopped")
	return nil
}

// buildBuiltinTools constructs the static tool set from configuration.
// Tools whose backing service is unconfigured still register and report
// the problem in-band, so the assistant can explain rather than
// pretending the capability does not exist. The one exception is the
// inbox tool, which is omitted entirely without IMAP credentials.
func buildBuiltinTools(cfg *config.Config, logger *slog.Logger) ([]*tools.Tool, error) {
	timeTool, err := tools.TimeTool(cfg.Session.Timezone, time.Now)
	if err != nil {
		return nil, fmt.Errorf("session.timezone: %w", err)
	}

	mgr := search.NewManager(cfg.Search.Primary)
	if cfg.Search.Tavily.Configured() {
		mgr.Register(search.NewTavily(cfg.Search.Tavily.APIKey))
	}
	if cfg.Search.Brave.Configured() {
		mgr.Register(search.NewBrave(cfg.Search.Brave.APIKey))
	}
	if !mgr.Configured() {
		logger.Warn("no search provider configured - web_search will report unavailability")
	}

	sender := email.NewSender(cfg.Email, logger)

	list := []*tools.Tool{
		timeTool,
		tools.WeatherTool(weather.New(cfg.Weather.BaseURL)),
		{
			Name:        "web_search",
			Description: "Search the web for current information such as news, stocks, and live facts.",
			Parameters:  search.ToolDefinition(),
			Handler:     search.ToolHandler(mgr),
		},
		{
			Name:        "read_url",
			Description: "Fetch a web page and return its readable text content.",
			Parameters:  fetch.ToolDefinition(),
			Handler:     fetch.ToolHandler(fetch.New()),
		},
		tools.SendEmailTool(sender),
	}

	if cfg.Email.IMAP.Configured() {
		list = append(list, tools.InboxTool(email.NewInbox(cfg.Email.IMAP, logger)))
	}

	return list, nil
}

// runMemories handles the "jarvis memories" subcommand. "dump" prints
// every stored record for the configured owner; "seed <fact>" submits a
// fact for extraction, which is handy for priming a fresh deployment.
func runMemories(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string, args []string, outputFmt string) error {
	sub := "dump"
	if len(args) > 0 {
		sub = args[0]
	}

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if !cfg.Memory.Configured() {
		return fmt.Errorf("memory service not configured (set memory.base_url and memory.owner_id)")
	}

	// Keep CLI output clean: only warnings and errors from the client.
	logger := newLogger(stderr, slog.LevelWarn)
	client := memstore.New(cfg.Memory.BaseURL, cfg.Memory.APIKey, cfg.Memory.RequestTimeout, logger)

	switch sub {
	case "dump":
		records, err := client.FetchAll(ctx, cfg.Memory.OwnerID)
		if err != nil {
			return fmt.Errorf("fetch memories: %w", err)
		}
		if outputFmt == "json" {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		}
		for _, r := range records {
			fmt.Fprintf(stdout, "- %s\n", r.Memory)
		}
		fmt.Fprintf(stdout, "%d memories for %s\n", len(records), cfg.Memory.OwnerID)
		return nil

	case "seed":
		fact := strings.Join(args[1:], " ")
		if fact == "" {
			return fmt.Errorf("usage: jarvis memories seed <fact>")
		}
		msgs := []memstore.Message{{Role: "user", Content: fact}}
		if err := client.Append(ctx, cfg.Memory.OwnerID, msgs); err != nil {
			return fmt.Errorf("seed memory: %w", err)
		}
		fmt.Fprintf(stdout, "Seeded memory for %s\n", cfg.Memory.OwnerID)
		return nil

	default:
		return fmt.Errorf("unknown memories subcommand: %s (expected dump or seed)", sub)
	}
}

// newLogger creates a structured text logger that writes to w at the
// given level. All log output in Jarvis goes through slog; this helper
// standardizes the handler configuration across subcommands.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file. If explicit
// is non-empty, that exact path is used (and must exist). Otherwise,
// [config.FindConfig] searches the default locations. Returns the parsed
// config, the path that was loaded, and any error.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
