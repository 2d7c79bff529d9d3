package tools

import (
	"context"
	"fmt"

	"github.com/roymercy27-cyber/jarvis-agent/internal/weather"
)

// WeatherTool reports current conditions for a city. Upstream failures
// are reported in the result text so the assistant can tell the user.
func WeatherTool(client *weather.Client) *Tool {
	return &Tool{
		Name:        "get_weather",
		Description: "Get the current weather for a given city quickly and accurately.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "City name to get conditions for.",
				},
			},
			"required": []string{"city"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			city, _ := args["city"].(string)
			if city == "" {
				return "", fmt.Errorf("get_weather: city is required")
			}
			conditions, err := client.Current(ctx, city)
			if err != nil {
				return fmt.Sprintf("Could not retrieve weather for %s.", city), nil
			}
			return conditions, nil
		},
	}
}
