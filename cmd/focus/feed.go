package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-focus/internal/log"
	"github.com/teslashibe/go-focus/pkg/feed"
	"github.com/teslashibe/go-focus/pkg/registry"
	"github.com/teslashibe/go-focus/pkg/session"
	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

var (
	feedServer  string
	feedSession string
	feedUser    string
	feedGoal    float64
	feedPreset  string
	feedSpeed   float64
)

func newFeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed <recording.jsonl>",
		Short: "Stream a landmark recording to a running server",
		Args:  cobra.ExactArgs(1),
		RunE:  runFeedCmd,
	}
	cmd.Flags().StringVar(&feedServer, "server", "", "server base URL (default: http://[server] addr)")
	cmd.Flags().StringVar(&feedSession, "session", "", "existing camera session id; a new one is started when empty")
	cmd.Flags().StringVar(&feedUser, "user", os.Getenv("USER"), "user name for a new session")
	cmd.Flags().Float64Var(&feedGoal, "goal", 1, "focus goal in hours for a new session")
	cmd.Flags().StringVar(&feedPreset, "preset", "", "tracking preset for a new session")
	cmd.Flags().Float64Var(&feedSpeed, "speed", 1, "playback speed; 0 sends as fast as possible")
	return cmd
}

func runFeedCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := log.L()
	ctx := cmd.Context()

	base := feedServer
	if base == "" {
		base = "http://" + cfg.Server.Addr
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	api := feed.NewAPI(base)
	id, started := feedSession, false
	if id == "" {
		id, err = api.Start(ctx, registry.StartRequest{
			User:      feedUser,
			GoalHours: feedGoal,
			Mode:      string(session.ModeCamera),
			Preset:    feedPreset,
		})
		if err != nil {
			return err
		}
		started = true
		logger.Info("session started", "session", id)
	}

	wsURL, err := feed.ObservationURL(base, id)
	if err != nil {
		return err
	}
	client, err := feed.Dial(ctx, wsURL, func(m feed.Message) {
		if m.Type == "error" {
			logger.Warn("server error", "data", string(m.Data))
		}
	}, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	sent, streamErr := client.Stream(ctx, detection.NewReplay(f), feedSpeed)
	logger.Info("recording sent", "frames", sent)

	if started {
		sum, err := api.Stop(context.WithoutCancel(ctx), id)
		if err != nil {
			return err
		}
		printSummary(os.Stdout, sum)
	}
	return streamErr
}
