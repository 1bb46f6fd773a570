package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-focus/internal/log"
	"github.com/teslashibe/go-focus/pkg/hub"
	"github.com/teslashibe/go-focus/pkg/registry"
	"github.com/teslashibe/go-focus/pkg/web"
)

var (
	serveAddr   string
	serveCamera bool
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides [server] addr)")
	cmd.Flags().BoolVar(&serveCamera, "camera", false, "sample the local webcam for camera sessions")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	ctx := cmd.Context()
	logger := log.L()

	trackingCfg, err := cfg.TrackingConfig()
	if err != nil {
		return err
	}

	h := hub.New("status", logger)
	b, err := openBackend(ctx, cfg, logger, h)
	if err != nil {
		return err
	}
	defer b.Close()

	regOpts := []registry.Option{
		registry.WithRecorder(b.recorder),
		registry.WithNotifier(b.notifier),
		registry.WithLogger(logger),
		registry.WithObserver(web.HubObserver(h)),
		registry.WithDistractionAlert(cfg.Tracking.DistractionAlert),
	}
	webOpts := []web.Option{web.WithLogger(logger)}
	if serveCamera {
		dev, err := openCamera(cfg, logger)
		if err != nil {
			return err
		}
		defer dev.Close()
		regOpts = append(regOpts, registry.WithCamera(dev.webcam, dev.detector))
		webOpts = append(webOpts, web.WithCamera(dev.manager))
	}

	reg, err := registry.New(trackingCfg, regOpts...)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := reg.Close(closeCtx); err != nil {
			logErrf("failed to stop sessions: %v\n", err)
		}
	}()

	srv := web.NewServer(web.Config{
		Addr:         cfg.Server.Addr,
		StaticDir:    cfg.Server.StaticDir,
		AllowOrigins: cfg.Server.AllowOrigins,
	}, reg, b.store, h, webOpts...)

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
