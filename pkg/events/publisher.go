// Package events streams focus timeline and session records to Kafka so
// other services can follow a user's focus in real time.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/teslashibe/go-focus/pkg/session"
)

// Event types carried in Envelope.Type.
const (
	TypeTimeline = "focus.timeline"
	TypeSummary  = "focus.summary"
)

const defaultQueueSize = 256

var (
	ErrNoBrokers  = errors.New("events: at least one broker is required")
	ErrNoTopic    = errors.New("events: topic must not be empty")
	ErrNotStarted = errors.New("events: publisher not started")
	ErrStopped    = errors.New("events: publisher stopped")
)

// Config holds Kafka publishing settings.
type Config struct {
	Brokers  []string
	Topic    string
	Acks     int // -1 all, 0 none, 1 leader
	Balancer string
}

// Envelope is the JSON value of every published message. The message key
// is the user name so a user's events stay ordered on one partition.
type Envelope struct {
	Type     string                  `json:"type"`
	At       time.Time               `json:"at"`
	Timeline *session.TimelineRecord `json:"timeline,omitempty"`
	Summary  *session.Summary        `json:"summary,omitempty"`
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher queues records and writes them to Kafka from one goroutine.
// It implements store.Backend; enqueueing never blocks on the broker.
type Publisher struct {
	cfg    Config
	log    *slog.Logger
	writer MessageWriter
	queue  chan kafka.Message

	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	stopped   atomic.Bool

	published atomic.Int64
	failed    atomic.Int64
}

// New creates a publisher backed by a kafka.Writer.
func New(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, ErrNoTopic
	}
	balancer, err := resolveBalancer(cfg.Balancer)
	if err != nil {
		return nil, err
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		RequiredAcks:           kafka.RequiredAcks(cfg.Acks),
		Balancer:               balancer,
		AllowAutoTopicCreation: true,
	}
	return NewWithWriter(cfg, w, logger), nil
}

// NewWithWriter wires an existing writer. Tests pass a fake.
func NewWithWriter(cfg Config, w MessageWriter, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		cfg:    cfg,
		log:    logger.With("component", "events", "topic", cfg.Topic),
		writer: w,
		queue:  make(chan kafka.Message, defaultQueueSize),
	}
}

// Start launches the delivery loop.
func (p *Publisher) Start(ctx context.Context) error {
	if p.stopped.Load() {
		return ErrStopped
	}
	p.startOnce.Do(func() {
		p.runCtx, p.cancel = context.WithCancel(ctx)
		p.started.Store(true)
		p.wg.Add(1)
		go p.run()
		p.log.Info("event publisher started", "brokers", strings.Join(p.cfg.Brokers, ","))
	})
	return nil
}

// Stop ends the loop after draining queued messages, then closes the
// writer. It returns ctx.Err() if the drain outlives ctx.
func (p *Publisher) Stop(ctx context.Context) error {
	var stopErr error
	p.stopOnce.Do(func() {
		p.stopped.Store(true)
		if p.cancel != nil {
			p.cancel()
		}
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = ctx.Err()
		}
		if err := p.writer.Close(); err != nil {
			p.log.Error("event writer close failed", "error", err)
		}
		p.log.Info("event publisher stopped",
			"published", p.published.Load(),
			"failed", p.failed.Load())
	})
	return stopErr
}

// SaveTimeline implements store.Backend.
func (p *Publisher) SaveTimeline(ctx context.Context, rec session.TimelineRecord) error {
	return p.publish(ctx, rec.User, Envelope{Type: TypeTimeline, At: rec.Timestamp, Timeline: &rec})
}

// SaveSummary implements store.Backend.
func (p *Publisher) SaveSummary(ctx context.Context, sum session.Summary) error {
	return p.publish(ctx, sum.User, Envelope{Type: TypeSummary, At: sum.EndedAt, Summary: &sum})
}

// Published returns how many messages the broker accepted.
func (p *Publisher) Published() int64 { return p.published.Load() }

// Failed returns how many deliveries failed.
func (p *Publisher) Failed() int64 { return p.failed.Load() }

func (p *Publisher) publish(ctx context.Context, key string, env Envelope) error {
	if p.stopped.Load() {
		return ErrStopped
	}
	if !p.started.Load() {
		return ErrNotStarted
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", env.Type, err)
	}
	msg := kafka.Message{Key: []byte(key), Value: value, Time: env.At}

	select {
	case p.queue <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.runCtx.Done():
		return ErrStopped
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.runCtx.Done():
			p.drain()
			return
		case msg := <-p.queue:
			p.deliver(p.runCtx, msg)
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-p.queue:
			p.deliver(ctx, msg)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, msg kafka.Message) {
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.failed.Add(1)
		p.log.Error("event publish failed", "key", string(msg.Key), "error", err)
		return
	}
	p.published.Add(1)
	p.log.Debug("event published", "key", string(msg.Key))
}

func resolveBalancer(name string) (kafka.Balancer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "hash":
		return &kafka.Hash{}, nil
	case "roundrobin":
		return &kafka.RoundRobin{}, nil
	case "leastbytes":
		return &kafka.LeastBytes{}, nil
	default:
		return nil, fmt.Errorf("events: unsupported balancer %q", name)
	}
}
