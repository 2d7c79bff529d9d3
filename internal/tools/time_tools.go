package tools

import (
	"context"
	"fmt"
	"time"
)

// TimeTool reports the current local time in the configured timezone.
// now is swappable for tests; nil uses time.Now.
func TimeTool(timezone string, now func() time.Time) (*Tool, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", timezone, err)
	}
	if now == nil {
		now = time.Now
	}

	return &Tool{
		Name:        "get_time",
		Description: fmt.Sprintf("Get the current local time (%s).", timezone),
		Parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("The current time is %s", now().In(loc).Format("03:04 PM")), nil
		},
	}, nil
}
