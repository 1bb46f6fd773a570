package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize   = 64
	defaultSendTimeout = 5 * time.Second
)

// Dispatcher is an asynchronous Notifier that fans alerts out to Senders.
type Dispatcher struct {
	senders []Sender
	log     *slog.Logger
	timeout time.Duration

	queue  chan Alert
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// closeMu guards closed so Notify never sends on a closed queue.
	closeMu sync.RWMutex
	closed  bool

	dropped atomic.Int64
	failed  atomic.Int64
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueSize sets the queue capacity. Alerts beyond it are dropped.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Alert, n)
		}
	}
}

// WithSendTimeout bounds every Send call.
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.log = logger
		}
	}
}

// NewDispatcher creates a dispatcher and starts its worker.
func NewDispatcher(senders []Sender, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		senders: senders,
		log:     slog.Default(),
		timeout: defaultSendTimeout,
		queue:   make(chan Alert, defaultQueueSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With("component", "notify")
	d.ctx, d.cancel = context.WithCancel(context.Background())

	d.wg.Add(1)
	go d.run()
	return d
}

// Notify queues an alert. It never blocks: a full queue drops the alert.
func (d *Dispatcher) Notify(a Alert) {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()
	if d.closed {
		return
	}
	if a.Time.IsZero() {
		a.Time = time.Now()
	}
	select {
	case d.queue <- a:
	default:
		d.dropped.Add(1)
		d.log.Warn("alert queue full, dropping", "kind", a.Kind, "user", a.User)
	}
}

// Dropped returns how many alerts were discarded because the queue was full.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Failed returns how many sends returned an error.
func (d *Dispatcher) Failed() int64 {
	return d.failed.Load()
}

// Close stops accepting alerts, drains what is queued and waits for the worker.
func (d *Dispatcher) Close() {
	d.closeMu.Lock()
	if d.closed {
		d.closeMu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.closeMu.Unlock()

	d.wg.Wait()
	d.cancel()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for a := range d.queue {
		for _, s := range d.senders {
			d.send(s, a)
		}
	}
}

func (d *Dispatcher) send(s Sender, a Alert) {
	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	if err := s.Send(ctx, a); err != nil {
		d.failed.Add(1)
		d.log.Warn("alert delivery failed", "kind", a.Kind, "user", a.User, "error", err)
	}
}
