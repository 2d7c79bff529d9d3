// Package weather wraps the wttr.in weather-by-city endpoint.
package weather

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roymercy27-cyber/jarvis-agent/internal/httpkit"
)

// requestTimeout keeps the weather lookup fast enough for a voice
// turn; a stale answer beats a slow one.
const requestTimeout = 3 * time.Second

// conditionsFormat asks wttr.in for location, condition, temperature,
// wind, and humidity on one line.
const conditionsFormat = "%l:+%C+%t+%w+%h"

// Client fetches current conditions for a city.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a weather client. baseURL defaults to https://wttr.in.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://wttr.in"
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpkit.NewClient(httpkit.WithTimeout(requestTimeout)),
	}
}

// Current returns a one-line weather summary for the city.
func (c *Client) Current(ctx context.Context, city string) (string, error) {
	if strings.TrimSpace(city) == "" {
		return "", fmt.Errorf("weather: city is required")
	}

	u := fmt.Sprintf("%s/%s?format=%s", c.baseURL, url.PathEscape(city), url.QueryEscape(conditionsFormat))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("weather: HTTP %d for %s", resp.StatusCode, city)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("weather: read response: %w", err)
	}

	return strings.TrimSpace(string(body)), nil
}
