package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/Berlin") {
			t.Errorf("path = %q, want /Berlin prefix", r.URL.Path)
		}
		if got := r.URL.Query().Get("format"); got != "%l:+%C+%t+%w+%h" {
			t.Errorf("format = %q", got)
		}
		w.Write([]byte("Berlin: Partly cloudy +18°C ↗11km/h 63%\n"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	got, err := c.Current(context.Background(), "Berlin")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if !strings.Contains(got, "Partly cloudy") {
		t.Errorf("summary = %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("summary should be trimmed")
	}
}

func TestCurrentEmptyCity(t *testing.T) {
	c := New("")
	if _, err := c.Current(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty city")
	}
}

func TestCurrentHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.Current(context.Background(), "Berlin"); err == nil {
		t.Fatal("expected error for HTTP 503")
	}
}
