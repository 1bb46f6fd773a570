package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-focus/pkg/session"
)

// Backend persists records synchronously. *Store and the Kafka publisher
// in pkg/events implement it.
type Backend interface {
	SaveTimeline(ctx context.Context, rec session.TimelineRecord) error
	SaveSummary(ctx context.Context, sum session.Summary) error
}

// Fanout writes every record to each backend in order. The first error is
// returned after all backends have been tried.
type Fanout []Backend

// SaveTimeline implements Backend.
func (f Fanout) SaveTimeline(ctx context.Context, rec session.TimelineRecord) error {
	var errs []error
	for _, b := range f {
		if err := b.SaveTimeline(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SaveSummary implements Backend.
func (f Fanout) SaveSummary(ctx context.Context, sum session.Summary) error {
	var errs []error
	for _, b := range f {
		if err := b.SaveSummary(ctx, sum); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

const (
	defaultAsyncQueue   = 256
	defaultWriteTimeout = 5 * time.Second
)

type job struct {
	timeline *session.TimelineRecord
	summary  *session.Summary
}

// Async adapts a Backend to session.Recorder. Records are queued and
// written by one worker; a full queue drops the record with a warning and
// write failures are logged. Time accounting never waits on storage.
type Async struct {
	backend Backend
	log     *slog.Logger
	timeout time.Duration

	queue   chan job
	wg      sync.WaitGroup
	closeMu sync.RWMutex
	closed  bool

	dropped atomic.Int64
	failed  atomic.Int64
}

// AsyncOption configures an Async recorder.
type AsyncOption func(*Async)

// WithAsyncQueue sets the queue capacity.
func WithAsyncQueue(n int) AsyncOption {
	return func(a *Async) {
		if n > 0 {
			a.queue = make(chan job, n)
		}
	}
}

// WithAsyncLogger sets the logger.
func WithAsyncLogger(l *slog.Logger) AsyncOption {
	return func(a *Async) {
		if l != nil {
			a.log = l
		}
	}
}

// WithWriteTimeout bounds each backend write.
func WithWriteTimeout(d time.Duration) AsyncOption {
	return func(a *Async) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAsync starts the writer goroutine. Call Close to drain it.
func NewAsync(backend Backend, opts ...AsyncOption) *Async {
	a := &Async{
		backend: backend,
		log:     slog.Default(),
		timeout: defaultWriteTimeout,
		queue:   make(chan job, defaultAsyncQueue),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With("component", "recorder")

	a.wg.Add(1)
	go a.run()
	return a
}

// RecordTimeline implements session.Recorder.
func (a *Async) RecordTimeline(rec session.TimelineRecord) {
	a.enqueue(job{timeline: &rec})
}

// RecordSummary implements session.Recorder.
func (a *Async) RecordSummary(sum session.Summary) {
	a.enqueue(job{summary: &sum})
}

func (a *Async) enqueue(j job) {
	a.closeMu.RLock()
	defer a.closeMu.RUnlock()

	if a.closed {
		a.dropped.Add(1)
		a.log.Warn("recorder closed, dropping record")
		return
	}
	select {
	case a.queue <- j:
	default:
		a.dropped.Add(1)
		a.log.Warn("recorder queue full, dropping record")
	}
}

func (a *Async) run() {
	defer a.wg.Done()
	for j := range a.queue {
		a.write(j)
	}
}

func (a *Async) write(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	var err error
	switch {
	case j.timeline != nil:
		err = a.backend.SaveTimeline(ctx, *j.timeline)
	case j.summary != nil:
		err = a.backend.SaveSummary(ctx, *j.summary)
	}
	if err != nil {
		a.failed.Add(1)
		a.log.Error("record write failed", "error", err)
	}
}

// Dropped returns how many records were discarded.
func (a *Async) Dropped() int64 { return a.dropped.Load() }

// Failed returns how many backend writes failed.
func (a *Async) Failed() int64 { return a.failed.Load() }

// Close stops accepting records and waits for queued ones to be written or
// for ctx to end. It is safe to call more than once.
func (a *Async) Close(ctx context.Context) error {
	a.closeMu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
