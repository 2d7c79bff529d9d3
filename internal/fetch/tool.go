package fetch

import (
	"context"
	"fmt"
	"strings"
)

// ToolHandler adapts a Fetcher to the tools.Tool Handler signature.
// Network and HTTP failures are reported in the returned text so the
// assistant can tell the user instead of aborting the response.
func ToolHandler(f *Fetcher) func(ctx context.Context, args map[string]any) (string, error) {
	return func(ctx context.Context, args map[string]any) (string, error) {
		url, _ := args["url"].(string)
		if url == "" {
			return "", fmt.Errorf("read_url: url is required")
		}

		maxChars := 0
		if mc, ok := args["max_chars"].(float64); ok && mc > 0 {
			maxChars = int(mc)
		}

		page, err := f.Fetch(ctx, url, maxChars)
		if err != nil {
			return "I couldn't load that page right now.", nil
		}
		if page.StatusCode >= 400 {
			return fmt.Sprintf("The page returned an error (HTTP %d).", page.StatusCode), nil
		}

		var b strings.Builder
		if page.Title != "" {
			b.WriteString(page.Title)
			b.WriteString("\n\n")
		}
		b.WriteString(page.Content)
		if page.Truncated {
			b.WriteString("\n\n[content truncated]")
		}
		return b.String(), nil
	}
}

// ToolDefinition returns the JSON Schema parameters for the read_url tool.
func ToolDefinition() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "URL of the web page to read.",
			},
			"max_chars": map[string]any{
				"type":        "integer",
				"description": "Maximum characters of extracted text to return.",
			},
		},
		"required": []string{"url"},
	}
}
