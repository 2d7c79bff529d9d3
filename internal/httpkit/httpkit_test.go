package httpkit

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewClientDefaultTimeout(t *testing.T) {
	c := NewClient()
	if c.Timeout != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", c.Timeout)
	}
}

func TestNewClientWithTimeout(t *testing.T) {
	c := NewClient(WithTimeout(3 * time.Second))
	if c.Timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", c.Timeout)
	}
}

func TestUserAgentInjected(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := NewClient()
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	DrainAndClose(resp.Body, 1024)

	if !strings.HasPrefix(gotUA, "jarvis-agent/") {
		t.Errorf("User-Agent = %q, want jarvis-agent/ prefix", gotUA)
	}
}

func TestUserAgentNotOverwritten(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	c := NewClient()
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "custom/1.0")
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	DrainAndClose(resp.Body, 1024)

	if gotUA != "custom/1.0" {
		t.Errorf("User-Agent = %q, want custom/1.0", gotUA)
	}
}

func TestWithoutUserAgent(t *testing.T) {
	c := NewClient(WithoutUserAgent())
	if _, ok := c.Transport.(*userAgentTransport); ok {
		t.Error("expected no userAgentTransport wrapper")
	}
}

func TestDrainAndCloseNil(t *testing.T) {
	// Must not panic.
	DrainAndClose(nil, 0)
}

func TestDrainAndClose(t *testing.T) {
	rc := io.NopCloser(strings.NewReader(strings.Repeat("x", 4096)))
	DrainAndClose(rc, 1024)
}

type trackedCloser struct {
	io.Reader
	closed bool
	read   int
}

func (c *trackedCloser) Read(p []byte) (int, error) {
	n, err := c.Reader.Read(p)
	c.read += n
	return n, err
}

func (c *trackedCloser) Close() error {
	c.closed = true
	return nil
}

func TestDrainAndCloseStopsAtLimit(t *testing.T) {
	rc := &trackedCloser{Reader: strings.NewReader(strings.Repeat("x", 1<<20))}
	DrainAndClose(rc, 4096)

	if !rc.closed {
		t.Error("body not closed")
	}
	if rc.read > 4096 {
		t.Errorf("read %d bytes past the drain limit", rc.read)
	}
}
