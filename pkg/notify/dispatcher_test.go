package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-focus/internal/log"
)

type collectSender struct {
	mu     sync.Mutex
	alerts []Alert
	err    error
}

func (c *collectSender) Send(_ context.Context, a Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, a)
	return c.err
}

func (c *collectSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

func TestDispatcher_DeliversToAllSenders(t *testing.T) {
	a, b := &collectSender{}, &collectSender{}
	d := NewDispatcher([]Sender{a, b}, WithLogger(log.Discard()))

	d.Notify(Alert{Kind: KindDistracted, Title: "Distraction detected"})
	d.Notify(Alert{Kind: KindRestored, Title: "Back to focus"})
	d.Close()

	if a.count() != 2 || b.count() != 2 {
		t.Errorf("Expected 2 alerts per sender, got %d and %d", a.count(), b.count())
	}
	if a.alerts[0].Time.IsZero() {
		t.Error("Expected dispatcher to stamp alert time")
	}
}

func TestDispatcher_FailuresAreSwallowed(t *testing.T) {
	failing := &collectSender{err: errors.New("smtp down")}
	ok := &collectSender{}
	d := NewDispatcher([]Sender{failing, ok}, WithLogger(log.Discard()))

	d.Notify(Alert{Kind: KindWarning})
	d.Close()

	if d.Failed() != 1 {
		t.Errorf("Expected 1 failed send, got %d", d.Failed())
	}
	if ok.count() != 1 {
		t.Errorf("Expected healthy sender to still receive the alert, got %d", ok.count())
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	slow := SenderFunc(func(ctx context.Context, a Alert) error {
		<-block
		return nil
	})
	d := NewDispatcher([]Sender{slow}, WithQueueSize(1), WithLogger(log.Discard()))

	// First alert is picked up by the worker and blocks, second fills the
	// queue, the rest must be dropped without blocking the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify(Alert{Kind: KindWarning})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	close(block)
	d.Close()

	if d.Dropped() == 0 {
		t.Error("Expected some alerts to be dropped")
	}
}

func TestDispatcher_NotifyAfterCloseIsIgnored(t *testing.T) {
	s := &collectSender{}
	d := NewDispatcher([]Sender{s}, WithLogger(log.Discard()))
	d.Close()
	d.Close() // idempotent

	d.Notify(Alert{Kind: KindGoal})
	if s.count() != 0 {
		t.Errorf("Expected no delivery after close, got %d", s.count())
	}
}

func TestWebhookSender(t *testing.T) {
	var got Alert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s, err := NewWebhookSender(srv.URL)
	if err != nil {
		t.Fatalf("NewWebhookSender: %v", err)
	}

	err = s.Send(context.Background(), Alert{Kind: KindStreak, Title: "Still distracted", User: "asha"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Kind != KindStreak || got.User != "asha" {
		t.Errorf("Unexpected payload: %+v", got)
	}
}

func TestWebhookSender_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, _ := NewWebhookSender(srv.URL)
	err := s.Send(context.Background(), Alert{Kind: KindWarning})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable || !se.IsRetryable() {
		t.Errorf("Unexpected status error: %+v", se)
	}
}

func TestNewWebhookSender_RequiresURL(t *testing.T) {
	if _, err := NewWebhookSender(""); !errors.Is(err, ErrNoURL) {
		t.Errorf("Expected ErrNoURL, got %v", err)
	}
}
