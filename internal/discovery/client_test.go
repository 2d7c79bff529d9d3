package discovery

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/roymercy27-cyber/jarvis-agent/internal/tools"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeService implements a minimal JSON-RPC extension service.
func fakeService(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}

		resp := response{JSONRPC: jsonrpcVersion, ID: req.ID}
		switch req.Method {
		case "tools/list":
			resp.Result = json.RawMessage(`{"tools":[
				{"name":"lookup-calendar","description":"Check the calendar.","inputSchema":{"type":"object"}}
			]}`)
		case "tools/call":
			params, _ := req.Params.(map[string]any)
			if params["name"] != "lookup-calendar" {
				resp.Error = &RPCError{Code: -32601, Message: "unknown tool"}
				break
			}
			resp.Result = json.RawMessage(`{"content":[{"type":"text","text":"Two meetings today."}]}`)
		case "ping":
			resp.Result = json.RawMessage(`{}`)
		default:
			resp.Error = &RPCError{Code: -32601, Message: "method not found"}
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClientListAndInvoke(t *testing.T) {
	srv := fakeService(t)
	defer srv.Close()

	c := NewClient("calendar", srv.URL, nil, testLogger())

	decls, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(decls) != 1 || decls[0].Name != "lookup-calendar" {
		t.Fatalf("decls = %+v", decls)
	}

	out, err := c.Invoke(context.Background(), "lookup-calendar", map[string]any{"day": "today"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "Two meetings today." {
		t.Errorf("output = %q", out)
	}
}

func TestClientInvokeRPCError(t *testing.T) {
	srv := fakeService(t)
	defer srv.Close()

	c := NewClient("calendar", srv.URL, nil, testLogger())
	if _, err := c.Invoke(context.Background(), "no-such-tool", nil); err == nil {
		t.Fatal("expected error for unknown remote tool")
	}
}

func TestClientSendsHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(response{JSONRPC: jsonrpcVersion, ID: 1, Result: json.RawMessage(`{}`)})
	}))
	defer srv.Close()

	c := NewClient("calendar", srv.URL, map[string]string{"Authorization": "Bearer tok"}, testLogger())
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestProviderBridgesTools(t *testing.T) {
	srv := fakeService(t)
	defer srv.Close()

	p := NewProvider(NewClient("calendar", srv.URL, nil, testLogger()))

	ts, err := p.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools: %v", err)
	}
	if len(ts) != 1 {
		t.Fatalf("len(tools) = %d", len(ts))
	}
	if ts[0].Name != "ext_calendar_lookup_calendar" {
		t.Errorf("name = %q", ts[0].Name)
	}

	out, err := ts[0].Handler(context.Background(), map[string]any{"day": "today"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if out != "Two meetings today." {
		t.Errorf("output = %q", out)
	}
}

func TestProviderUnreachableServiceDegrades(t *testing.T) {
	p := NewProvider(NewClient("calendar", "http://127.0.0.1:1", nil, testLogger()))

	if _, err := p.Tools(context.Background()); err == nil {
		t.Fatal("expected error from unreachable service")
	}

	// The registry builder drops the failing provider and keeps going.
	static := tools.NewStaticProvider("builtin", nil)
	r := tools.BuildRegistry(context.Background(), testLogger(), p, static)
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestToolNameSanitizes(t *testing.T) {
	got := ToolName("My Service!", "Do--Thing")
	if got != "ext_my_service_do_thing" {
		t.Errorf("ToolName = %q", got)
	}
}
