package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roymercy27-cyber/jarvis-agent/internal/email"
)

// SendEmailTool sends mail on the owner's behalf. Missing credentials
// and delivery failures are reported in the result text; only malformed
// arguments produce a Go error.
func SendEmailTool(sender *email.Sender) *Tool {
	return &Tool{
		Name:        "send_email",
		Description: "Send an email through the owner's mail account.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"to_email": map[string]any{
					"type":        "string",
					"description": "Recipient email address.",
				},
				"subject": map[string]any{
					"type":        "string",
					"description": "Subject line.",
				},
				"message": map[string]any{
					"type":        "string",
					"description": "Email body. Markdown is rendered for the HTML part.",
				},
				"cc_email": map[string]any{
					"type":        "string",
					"description": "Optional CC address.",
				},
			},
			"required": []string{"to_email", "subject", "message"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			to, _ := args["to_email"].(string)
			subject, _ := args["subject"].(string)
			body, _ := args["message"].(string)
			if to == "" || subject == "" || body == "" {
				return "", fmt.Errorf("send_email: to_email, subject, and message are required")
			}

			opts := email.ComposeOptions{
				To:      []string{to},
				Subject: subject,
				Body:    body,
			}
			if cc, _ := args["cc_email"].(string); cc != "" {
				opts.Cc = []string{cc}
			}

			err := sender.Send(ctx, opts)
			switch {
			case errors.Is(err, email.ErrNotConfigured):
				return "Email is not set up. The mail account credentials have not been configured.", nil
			case err != nil:
				return fmt.Sprintf("Email failed: %v", err), nil
			}
			return fmt.Sprintf("Email successfully sent to %s", to), nil
		},
	}
}

// InboxTool summarizes unread mail. The summary is phrased for speech.
func InboxTool(inbox *email.Inbox) *Tool {
	return &Tool{
		Name:        "inbox_status",
		Description: "Check the owner's inbox for unread email and summarize the most recent messages.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of messages to summarize. Default 5.",
				},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			limit := 5
			if l, ok := args["limit"].(float64); ok && l > 0 {
				limit = int(l)
			}

			envelopes, total, err := inbox.Unseen(ctx, limit)
			if err != nil {
				return "I couldn't reach the inbox right now.", nil
			}
			if total == 0 {
				return "The inbox is all caught up. No unread mail.", nil
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%d unread message(s). Most recent:\n", total)
			for _, env := range envelopes {
				fmt.Fprintf(&b, "- From %s: %s (%s)\n", env.From, env.Subject, env.Date.Format("Jan 2 15:04"))
			}
			return b.String(), nil
		},
	}
}
