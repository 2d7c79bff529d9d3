// Package search provides a pluggable web search interface for the agent.
//
// Each search provider implements the [Provider] interface and is
// registered by name. The [Manager] selects a provider based on
// configuration and exposes a single [Manager.Search] method that the
// tool layer calls. When the primary provider fails, the manager falls
// through to the remaining providers in registration order; search is
// a convenience and should degrade rather than fail the turn.
package search

import (
	"context"
	"fmt"
	"strings"
)

// Result is a single search result.
type Result struct {
	Title   string `json:"title,omitempty"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Options are optional parameters for a search query.
type Options struct {
	// MaxResults caps how many results to return. Providers may return
	// fewer. Zero means the provider default.
	MaxResults int `json:"max_results,omitempty"`
}

// Provider is the interface that search backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g., "tavily", "brave").
	Name() string

	// Search executes a query and returns results. An empty result
	// list is a valid non-error outcome.
	Search(ctx context.Context, query string, opts Options) ([]Result, error)
}

// Manager holds configured providers and routes searches.
type Manager struct {
	order    []string
	provider map[string]Provider
	primary  string
}

// NewManager creates a search manager. The primary provider name
// determines which backend is tried first.
func NewManager(primary string) *Manager {
	return &Manager{
		provider: make(map[string]Provider),
		primary:  primary,
	}
}

// Register adds a provider to the manager. Registration order is the
// fallback order after the primary.
func (m *Manager) Register(p Provider) {
	if _, dup := m.provider[p.Name()]; !dup {
		m.order = append(m.order, p.Name())
	}
	m.provider[p.Name()] = p
}

// Configured reports whether at least one provider is registered.
func (m *Manager) Configured() bool {
	return len(m.provider) > 0
}

// Providers returns the names of all registered providers.
func (m *Manager) Providers() []string {
	return append([]string(nil), m.order...)
}

// Search runs a query against the primary provider, falling through to
// the remaining providers on error. It returns the first successful
// result set, or the accumulated errors if every provider failed.
func (m *Manager) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	if len(m.provider) == 0 {
		return nil, fmt.Errorf("search: no providers configured")
	}

	var errs []string
	for _, name := range m.tryOrder() {
		results, err := m.provider[name].Search(ctx, query, opts)
		if err == nil {
			return results, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		errs = append(errs, fmt.Sprintf("%s: %v", name, err))
	}

	return nil, fmt.Errorf("search: all providers failed: %s", strings.Join(errs, "; "))
}

// tryOrder returns provider names with the primary first.
func (m *Manager) tryOrder() []string {
	if _, ok := m.provider[m.primary]; !ok {
		return m.order
	}
	order := []string{m.primary}
	for _, name := range m.order {
		if name != m.primary {
			order = append(order, name)
		}
	}
	return order
}

// FormatResults renders results as speakable text. Used when the
// structured form is not wanted.
func FormatResults(results []Result) string {
	if len(results) == 0 {
		return "No results found."
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Data: %s", r.Content)
	}
	return b.String()
}
