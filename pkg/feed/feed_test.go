package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-focus/internal/log"
	"github.com/teslashibe/go-focus/pkg/registry"
	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

func TestObservationURL(t *testing.T) {
	tests := []struct {
		base string
		want string
		err  bool
	}{
		{"http://localhost:5000", "ws://localhost:5000/ws/sessions/abc/observations", false},
		{"https://focus.example.com/", "wss://focus.example.com/ws/sessions/abc/observations", false},
		{"ws://10.0.0.2:5000", "ws://10.0.0.2:5000/ws/sessions/abc/observations", false},
		{"ftp://nope", "", true},
	}
	for _, tc := range tests {
		got, err := ObservationURL(tc.base, "abc")
		if (err != nil) != tc.err || got != tc.want {
			t.Errorf("ObservationURL(%q) = %q, %v", tc.base, got, err)
		}
	}
}

// echoServer answers every frame with an "update" envelope carrying it.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			out, _ := json.Marshal(Message{Type: "update", Data: data})
			if err := ws.WriteMessage(websocket.TextMessage, out); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

const recording = `{"t":"2026-03-02T09:00:00Z","landmarks":{"left_eye":{},"right_eye":{},"nose_tip":{"x":0.5,"y":0.5}}}
{"t":"2026-03-02T09:00:00.010Z"}

{"t":"2026-03-02T09:00:00.020Z"}
`

func TestClient_StreamsReplay(t *testing.T) {
	srv := echoServer(t)
	wsURL, err := ObservationURL(srv.URL, "s1")
	if err != nil {
		t.Fatalf("ObservationURL: %v", err)
	}

	var mu sync.Mutex
	var got []Message
	c, err := Dial(context.Background(), wsURL, func(m Message) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	}, log.Discard())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}

	start := time.Now()
	sent, err := c.Stream(context.Background(), detection.NewReplay(strings.NewReader(recording)), 1)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if sent != 3 {
		t.Errorf("sent: got %d, want 3", sent)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("pacing: finished in %v, want >= 20ms of recorded time", elapsed)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("received %d echoes, want 3", n)
		}
		time.Sleep(time.Millisecond)
	}

	var f detection.Frame
	if err := json.Unmarshal(got[0].Data, &f); err != nil || f.Landmarks == nil {
		t.Errorf("first echo: %s, %v", got[0].Data, err)
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := c.Send(detection.Frame{}); err != ErrClosed {
		t.Errorf("Send after Close: got %v", err)
	}
}

func TestClient_StreamStopsOnCancel(t *testing.T) {
	srv := echoServer(t)
	wsURL, _ := ObservationURL(srv.URL, "s1")
	c, err := Dial(context.Background(), wsURL, nil, log.Discard())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	slow := `{"t":"2026-03-02T09:00:00Z"}
{"t":"2026-03-02T10:00:00Z"}
`
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	sent, err := c.Stream(ctx, detection.NewReplay(strings.NewReader(slow)), 1)
	if err != context.DeadlineExceeded || sent != 1 {
		t.Errorf("got sent=%d err=%v", sent, err)
	}
}

func TestAPI_StartStop(t *testing.T) {
	var startBody registry.StartRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/sessions":
			json.NewDecoder(r.Body).Decode(&startBody)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"s1","status":"started"}`))
		case "/api/sessions/s1/stop":
			w.Write([]byte(`{"status":"stopped","result":{"session_id":"s1","focus_score":75,"status":"Focused"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status":"error","message":"registry: session not found"}`))
		}
	}))
	defer srv.Close()

	api := NewAPI(srv.URL + "/")
	ctx := context.Background()

	id, err := api.Start(ctx, registry.StartRequest{User: "asha", GoalHours: 1, Mode: "camera"})
	if err != nil || id != "s1" {
		t.Fatalf("Start: %q, %v", id, err)
	}
	if startBody.User != "asha" || startBody.GoalHours != 1 {
		t.Errorf("start body: %+v", startBody)
	}

	sum, err := api.Stop(ctx, "s1")
	if err != nil || sum.FocusScore != 75 {
		t.Errorf("Stop: %+v, %v", sum, err)
	}

	_, err = api.Stop(ctx, "missing")
	if err == nil || !strings.Contains(err.Error(), "session not found") {
		t.Errorf("Stop missing: got %v", err)
	}
}
