package search

import (
	"context"
	"fmt"
)

// ToolHandler returns a function compatible with the tools.Tool
// Handler signature. The returned string is framed so the model
// answers immediately instead of narrating that it searched.
func ToolHandler(mgr *Manager) func(ctx context.Context, args map[string]any) (string, error) {
	return func(ctx context.Context, args map[string]any) (string, error) {
		query, _ := args["query"].(string)
		if query == "" {
			return "", fmt.Errorf("web_search: query is required")
		}

		opts := Options{}
		if n, ok := args["max_results"].(float64); ok && n > 0 {
			opts.MaxResults = int(n)
		}

		results, err := mgr.Search(ctx, query, opts)
		if err != nil {
			// In-band failure: the assistant reports it, the turn survives.
			return "I'm having trouble connecting to my search tools right now.", nil
		}
		if len(results) == 0 {
			return "SEARCH_COMPLETE: no results found. Tell the user nothing turned up.", nil
		}

		return fmt.Sprintf("SEARCH_COMPLETE: %s. Please provide the answer to the user immediately.",
			FormatResults(results)), nil
	}
}

// ToolDefinition returns the JSON Schema parameters for the web_search tool.
func ToolDefinition() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query string. Use for real-time info such as stocks and news.",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results (1-10). Default: 2.",
			},
		},
		"required": []string{"query"},
	}
}
