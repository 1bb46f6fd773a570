package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/teslashibe/go-focus/internal/config"
	"github.com/teslashibe/go-focus/pkg/events"
	"github.com/teslashibe/go-focus/pkg/hub"
	"github.com/teslashibe/go-focus/pkg/notify"
	"github.com/teslashibe/go-focus/pkg/store"
)

const shutdownTimeout = 5 * time.Second

// backend bundles the persistence and alert plumbing shared by serve and
// track.
type backend struct {
	store     *store.Store
	publisher *events.Publisher
	recorder  *store.Async
	notifier  *notify.Dispatcher
}

func openStore(cfg config.Config) (*store.Store, error) {
	path := cfg.DBPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

// openBackend opens the store, starts the Kafka publisher when enabled and
// builds the alert dispatcher. h may be nil; extra senders are appended.
func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger, h *hub.Hub, extra ...notify.Sender) (*backend, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	b := &backend{store: st}

	sinks := store.Fanout{st}
	if cfg.Kafka.Enabled {
		pub, err := events.New(events.Config{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			Acks:     cfg.Kafka.Acks,
			Balancer: cfg.Kafka.Balancer,
		}, logger)
		if err != nil {
			st.Close()
			return nil, err
		}
		if err := pub.Start(ctx); err != nil {
			st.Close()
			return nil, err
		}
		b.publisher = pub
		sinks = append(sinks, pub)
	}
	b.recorder = store.NewAsync(sinks,
		store.WithAsyncQueue(cfg.Storage.Queue),
		store.WithAsyncLogger(logger))

	senders := []notify.Sender{notify.LogSender{Logger: logger}}
	if cfg.Notify.WebhookURL != "" {
		wh, err := notify.NewWebhookSender(cfg.Notify.WebhookURL)
		if err != nil {
			b.Close()
			return nil, err
		}
		senders = append(senders, wh)
	}
	if h != nil {
		senders = append(senders, hub.AlertSender{Hub: h})
	}
	senders = append(senders, extra...)
	b.notifier = notify.NewDispatcher(senders,
		notify.WithQueueSize(cfg.Notify.Queue),
		notify.WithLogger(logger))
	return b, nil
}

// Close drains the recorder and alerts, then closes the sinks.
func (b *backend) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if b.notifier != nil {
		b.notifier.Close()
	}
	if b.recorder != nil {
		if err := b.recorder.Close(ctx); err != nil {
			logErrf("failed to flush records: %v\n", err)
		}
	}
	if b.publisher != nil {
		if err := b.publisher.Stop(ctx); err != nil {
			logErrf("failed to stop event publisher: %v\n", err)
		}
	}
	if err := b.store.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}
