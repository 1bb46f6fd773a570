package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-focus/internal/log"
	"github.com/teslashibe/go-focus/pkg/notify"
)

// fakeConn is an in-memory Conn. Reads block until Close.
type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 8), closed: make(chan struct{})}
}

func (c *fakeConn) SetReadLimit(int64)                       {}
func (c *fakeConn) SetReadDeadline(time.Time) error          { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error         { return nil }
func (c *fakeConn) SetPongHandler(func(appData string) error) {}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-c.inbound:
		return 1, b, nil
	case <-c.closed:
		return 0, nil, errors.New("closed")
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) messages() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	waitFor(t, "hub running", h.IsRunning)
	t.Cleanup(cancel)
	return h, cancel
}

func TestHub_BroadcastByTopic(t *testing.T) {
	h, _ := startHub(t)

	all, a, b := newFakeConn(), newFakeConn(), newFakeConn()
	for conn, topic := range map[*fakeConn]string{all: "", a: "s-a", b: "s-b"} {
		go NewClient(h, conn, topic).Run()
	}
	waitFor(t, "three clients", func() bool { return h.ClientCount() == 3 })

	if err := h.BroadcastJSON("s-a", "update", map[string]string{"status": "Focused"}); err != nil {
		t.Fatalf("BroadcastJSON: %v", err)
	}

	waitFor(t, "delivery to s-a", func() bool { return len(a.messages()) == 1 })
	waitFor(t, "delivery to wildcard", func() bool { return len(all.messages()) == 1 })
	time.Sleep(10 * time.Millisecond)
	if n := len(b.messages()); n != 0 {
		t.Errorf("s-b received %d messages for s-a", n)
	}

	var env Envelope
	if err := json.Unmarshal(a.messages()[0], &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != "update" {
		t.Errorf("envelope type: got %q", env.Type)
	}
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	h, _ := startHub(t)

	conn := newFakeConn()
	go NewClient(h, conn, "").Run()
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	conn.Close()
	waitFor(t, "unregister", func() bool { return h.ClientCount() == 0 })
}

func TestClient_OnMessage(t *testing.T) {
	h, _ := startHub(t)

	conn := newFakeConn()
	got := make(chan []byte, 1)
	c := NewClient(h, conn, "s-a")
	c.OnMessage(func(b []byte) { got <- b })
	go c.Run()

	conn.inbound <- []byte(`{"ear":0.3}`)
	select {
	case b := <-got:
		if string(b) != `{"ear":0.3}` {
			t.Errorf("got %q", b)
		}
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
	conn.Close()
}

func TestHub_StopReleasesClients(t *testing.T) {
	h, cancel := startHub(t)

	conn := newFakeConn()
	go NewClient(h, conn, "").Run()
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	cancel()
	waitFor(t, "hub stopped", func() bool { return !h.IsRunning() })
	select {
	case <-conn.closed:
	case <-time.After(time.Second):
		t.Error("client connection not closed on hub stop")
	}

	// Registering after stop must not block
	done := make(chan struct{})
	go func() {
		NewClient(h, newFakeConn(), "")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("NewClient blocked on a stopped hub")
	}
}

func TestAlertSender(t *testing.T) {
	h, _ := startHub(t)

	conn := newFakeConn()
	go NewClient(h, conn, "sess-1").Run()
	waitFor(t, "client", func() bool { return h.ClientCount() == 1 })

	var s notify.Sender = AlertSender{Hub: h}
	if err := s.Send(context.Background(), notify.Alert{Kind: notify.KindWarning, SessionID: "sess-1"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	waitFor(t, "alert", func() bool { return len(conn.messages()) == 1 })

	var env struct {
		Type string       `json:"type"`
		Data notify.Alert `json:"data"`
	}
	if err := json.Unmarshal(conn.messages()[0], &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != "alert" || env.Data.Kind != notify.KindWarning {
		t.Errorf("got %+v", env)
	}
}
