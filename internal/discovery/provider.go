package discovery

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/roymercy27-cyber/jarvis-agent/internal/tools"
)

var sanitizeRe = regexp.MustCompile(`[^a-z0-9_]`)

// Provider adapts a discovery Client into a tools.Provider. Tool names
// are namespaced as "ext_{service}_{tool}" so remote tools can never
// shadow the builtins.
type Provider struct {
	client *Client
}

// NewProvider wraps a discovery client for registry assembly.
func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

func (p *Provider) Name() string {
	return "extension:" + p.client.Name()
}

// Tools fetches the remote declarations and wraps each one in a
// handler that proxies calls back to the extension service.
func (p *Provider) Tools(ctx context.Context) ([]*tools.Tool, error) {
	decls, err := p.client.ListTools(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*tools.Tool, 0, len(decls))
	for _, d := range decls {
		remoteName := d.Name
		out = append(out, &tools.Tool{
			Name:        ToolName(p.client.Name(), d.Name),
			Description: d.Description,
			Parameters:  d.InputSchema,
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				return p.client.Invoke(ctx, remoteName, args)
			},
		})
	}
	return out, nil
}

// ToolName builds a namespaced registry name from a service name and a
// remote tool name. Both parts are lowercased with non-alphanumeric
// runs collapsed to single underscores.
func ToolName(service, tool string) string {
	return fmt.Sprintf("ext_%s_%s", sanitize(service), sanitize(tool))
}

func sanitize(name string) string {
	s := strings.ToLower(name)
	s = sanitizeRe.ReplaceAllString(s, "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}
