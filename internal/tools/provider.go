package tools

import (
	"context"
	"log/slog"
)

// Provider supplies a set of tools for a session. Implementations may
// build the set locally or fetch declarations from a remote service.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Tools returns the tool set. A non-nil error means the provider
	// could not produce its tools at all.
	Tools(ctx context.Context) ([]*Tool, error)
}

// StaticProvider serves a fixed tool set and never fails.
type StaticProvider struct {
	name  string
	tools []*Tool
}

// NewStaticProvider creates a provider over a fixed set of tools.
func NewStaticProvider(name string, tools []*Tool) *StaticProvider {
	return &StaticProvider{name: name, tools: tools}
}

func (p *StaticProvider) Name() string { return p.name }

func (p *StaticProvider) Tools(ctx context.Context) ([]*Tool, error) {
	return p.tools, nil
}

// BuildRegistry assembles a Registry from providers in order. A failing
// provider is logged and skipped so the session still gets the tools
// the remaining providers can supply. Later providers win name clashes.
func BuildRegistry(ctx context.Context, logger *slog.Logger, providers ...Provider) *Registry {
	r := NewRegistry()
	for _, p := range providers {
		ts, err := p.Tools(ctx)
		if err != nil {
			logger.Warn("tool provider failed, continuing without it",
				"provider", p.Name(),
				"error", err)
			continue
		}
		for _, t := range ts {
			r.Register(t)
		}
		logger.Debug("tool provider loaded",
			"provider", p.Name(),
			"tools", len(ts))
	}
	return r
}
