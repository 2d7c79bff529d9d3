package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// Envelope is the summary metadata for one inbox message.
type Envelope struct {
	From    string
	Subject string
	Date    time.Time
}

// Inbox reads unseen-mail summaries over IMAP for the inbox_status
// tool. Connections are ephemeral; each call dials, reads, and logs
// out, which keeps the worker free of long-lived mailbox state.
type Inbox struct {
	cfg    IMAPConfig
	logger *slog.Logger
}

// NewInbox creates an inbox reader for the given account.
func NewInbox(cfg IMAPConfig, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{cfg: cfg, logger: logger}
}

// Unseen returns up to limit unseen messages from INBOX, newest first,
// together with the total unseen count.
func (in *Inbox) Unseen(ctx context.Context, limit int) ([]Envelope, int, error) {
	if limit <= 0 {
		limit = 5
	}

	client, err := in.dial(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer client.Close()

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		return nil, 0, fmt.Errorf("select INBOX: %w", err)
	}

	criteria := &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagSeen}}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, 0, fmt.Errorf("search unseen: %w", err)
	}

	allUIDs := searchData.AllUIDs()
	total := len(allUIDs)
	if total == 0 {
		return nil, 0, nil
	}

	// Highest UIDs are the newest messages.
	start := 0
	if total > limit {
		start = total - limit
	}
	uidSet := imap.UIDSet{}
	for _, uid := range allUIDs[start:] {
		uidSet.AddNum(uid)
	}

	fetchCmd := client.Fetch(uidSet, &imap.FetchOptions{UID: true, Envelope: true})
	var envelopes []Envelope
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		data, err := msg.Collect()
		if err != nil || data.Envelope == nil {
			continue
		}
		env := Envelope{Subject: data.Envelope.Subject, Date: data.Envelope.Date}
		if len(data.Envelope.From) > 0 {
			env.From = data.Envelope.From[0].Addr()
		}
		envelopes = append(envelopes, env)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, 0, fmt.Errorf("fetch envelopes: %w", err)
	}

	// Newest first.
	for i, j := 0, len(envelopes)-1; i < j; i, j = i+1, j-1 {
		envelopes[i], envelopes[j] = envelopes[j], envelopes[i]
	}

	return envelopes, total, nil
}

func (in *Inbox) dial(ctx context.Context) (*imapclient.Client, error) {
	addr := net.JoinHostPort(in.cfg.Host, fmt.Sprintf("%d", in.cfg.Port))

	var opts imapclient.Options
	var client *imapclient.Client
	var err error
	if in.cfg.TLS {
		opts.TLSConfig = &tls.Config{ServerName: in.cfg.Host}
		client, err = imapclient.DialTLS(addr, &opts)
	} else {
		client, err = imapclient.DialInsecure(addr, &opts)
	}
	if err != nil {
		return nil, fmt.Errorf("dial IMAP %s: %w", addr, err)
	}

	if err := client.Login(in.cfg.Username, in.cfg.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("login as %s: %w", in.cfg.Username, err)
	}

	in.logger.Debug("imap connected", "host", in.cfg.Host, "user", in.cfg.Username)
	return client, nil
}
