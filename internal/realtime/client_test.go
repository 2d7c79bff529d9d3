package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeServer upgrades connections, immediately confirms the session,
// and hands the connection to handle.
func fakeServer(t *testing.T, handle func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteJSON(map[string]any{"type": "session.created"})
		if handle != nil {
			handle(conn)
		} else {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	}))
}

func connect(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c := NewClient(Config{URL: srv.URL, APIKey: "key"}, testLogger())
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func waitEvent(t *testing.T, c *Client, want EventType) Event {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-c.Events():
			if !ok {
				t.Fatalf("events channel closed while waiting for %s", want)
			}
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func TestConnectWaitsForSessionCreated(t *testing.T) {
	srv := fakeServer(t, nil)
	defer srv.Close()
	connect(t, srv)
}

func TestConnectFailsWhenUnreachable(t *testing.T) {
	c := NewClient(Config{URL: "http://127.0.0.1:1", HandshakeTimeout: time.Second}, testLogger())
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("expected connect error")
	}
}

func TestConnectFailsOnServerError(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(map[string]any{
			"type":  "error",
			"error": map[string]any{"message": "invalid api key"},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL}, testLogger())
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("expected rejection error")
	}
}

func TestConfigureSessionPayload(t *testing.T) {
	got := make(chan map[string]any, 1)
	srv := fakeServer(t, func(conn *websocket.Conn) {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err == nil {
			got <- msg
		}
	})
	defer srv.Close()

	c := connect(t, srv)
	err := c.ConfigureSession(SessionOptions{
		Instructions:     "Be brief.",
		Voice:            "Charon",
		Temperature:      0.8,
		EndpointingDelay: 500 * time.Millisecond,
		Tools: []map[string]any{
			{"type": "function", "name": "get_time"},
		},
	})
	if err != nil {
		t.Fatalf("ConfigureSession: %v", err)
	}

	msg := <-got
	if msg["type"] != "session.update" {
		t.Fatalf("type = %v", msg["type"])
	}
	session := msg["session"].(map[string]any)
	if session["voice"] != "Charon" {
		t.Errorf("voice = %v", session["voice"])
	}
	if session["temperature"] != 0.8 {
		t.Errorf("temperature = %v", session["temperature"])
	}
	td := session["turn_detection"].(map[string]any)
	if td["silence_duration_ms"] != float64(500) {
		t.Errorf("silence_duration_ms = %v", td["silence_duration_ms"])
	}
	if len(session["tools"].([]any)) != 1 {
		t.Errorf("tools = %v", session["tools"])
	}
}

func TestTranscriptEvents(t *testing.T) {
	srv := fakeServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(map[string]any{
			"type":       "conversation.item.input_audio_transcription.completed",
			"transcript": "what time is it",
		})
		conn.WriteJSON(map[string]any{
			"type":  "response.audio_transcript.delta",
			"delta": "It's ",
		})
		conn.WriteJSON(map[string]any{
			"type":       "response.audio_transcript.done",
			"transcript": "It's noon.",
		})
		time.Sleep(time.Second)
	})
	defer srv.Close()

	c := connect(t, srv)

	ev := waitEvent(t, c, EventTranscript)
	if ev.Role != "user" || ev.Text != "what time is it" || !ev.Final {
		t.Errorf("user transcript = %+v", ev)
	}

	ev = waitEvent(t, c, EventTranscript)
	if ev.Role != "assistant" || ev.Text != "It's " || ev.Final {
		t.Errorf("assistant delta = %+v", ev)
	}

	ev = waitEvent(t, c, EventTranscript)
	if ev.Role != "assistant" || ev.Text != "It's noon." || !ev.Final {
		t.Errorf("assistant final = %+v", ev)
	}
}

func TestFunctionCallRoundTrip(t *testing.T) {
	results := make(chan map[string]any, 2)
	srv := fakeServer(t, func(conn *websocket.Conn) {
		conn.WriteJSON(map[string]any{
			"type":      "response.function_call_arguments.done",
			"call_id":   "call_1",
			"name":      "get_weather",
			"arguments": `{"city":"Nairobi"}`,
		})
		for i := 0; i < 2; i++ {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			results <- msg
		}
	})
	defer srv.Close()

	c := connect(t, srv)

	ev := waitEvent(t, c, EventFunctionCall)
	if ev.Name != "get_weather" || ev.CallID != "call_1" {
		t.Fatalf("function call = %+v", ev)
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(ev.ArgsJSON), &args); err != nil {
		t.Fatalf("arguments not valid JSON: %v", err)
	}

	if err := c.SendFunctionResult(ev.CallID, "Sunny"); err != nil {
		t.Fatalf("SendFunctionResult: %v", err)
	}

	first := <-results
	item := first["item"].(map[string]any)
	if item["type"] != "function_call_output" || item["call_id"] != "call_1" || item["output"] != "Sunny" {
		t.Errorf("function output item = %+v", item)
	}
	second := <-results
	if second["type"] != "response.create" {
		t.Errorf("follow-up = %+v", second)
	}
}

func TestInjectMessageAndCreateResponse(t *testing.T) {
	msgs := make(chan map[string]any, 2)
	srv := fakeServer(t, func(conn *websocket.Conn) {
		for i := 0; i < 2; i++ {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			msgs <- msg
		}
	})
	defer srv.Close()

	c := connect(t, srv)

	if err := c.InjectMessage("user", "background facts"); err != nil {
		t.Fatalf("InjectMessage: %v", err)
	}
	if err := c.CreateResponse("Greet the user."); err != nil {
		t.Fatalf("CreateResponse: %v", err)
	}

	inject := <-msgs
	if inject["type"] != "conversation.item.create" {
		t.Fatalf("inject type = %v", inject["type"])
	}
	item := inject["item"].(map[string]any)
	if item["role"] != "user" {
		t.Errorf("role = %v", item["role"])
	}

	create := <-msgs
	if create["type"] != "response.create" {
		t.Fatalf("create type = %v", create["type"])
	}
	resp := create["response"].(map[string]any)
	if resp["instructions"] != "Greet the user." {
		t.Errorf("instructions = %v", resp["instructions"])
	}
}

func TestDisconnectEvent(t *testing.T) {
	srv := fakeServer(t, func(conn *websocket.Conn) {
		// Return immediately so the server closes the connection.
	})
	defer srv.Close()

	c := connect(t, srv)
	waitEvent(t, c, EventDisconnect)

	if _, ok := <-c.Events(); ok {
		t.Error("events channel should be closed after disconnect")
	}
}
