package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-focus/internal/clock"
	"github.com/teslashibe/go-focus/internal/log"
	"github.com/teslashibe/go-focus/pkg/session"
	"github.com/teslashibe/go-focus/pkg/store"
	"github.com/teslashibe/go-focus/pkg/tracking"
	"github.com/teslashibe/go-focus/pkg/tracking/detection"
)

var (
	replayUser   string
	replayGoal   float64
	replayPreset string
	replaySave   bool
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <recording.jsonl>",
		Short: "Classify a landmark recording offline",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplayCmd,
	}
	cmd.Flags().StringVar(&replayUser, "user", "replay", "user name for the session")
	cmd.Flags().Float64Var(&replayGoal, "goal", 1, "focus goal in hours")
	cmd.Flags().StringVar(&replayPreset, "preset", "", "tracking preset (overrides [tracking] preset)")
	cmd.Flags().BoolVar(&replaySave, "save", false, "store the session and its timeline")
	return cmd
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if replayPreset != "" {
		cfg.Tracking.Preset = replayPreset
	}
	trackingCfg, err := cfg.TrackingConfig()
	if err != nil {
		return err
	}
	logger := log.L()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	clk := clock.NewManual(time.Time{})
	sessOpts := []session.Option{
		session.WithClock(clk),
		session.WithLogger(logger),
	}
	if replaySave {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		rec := store.NewAsync(st, store.WithAsyncLogger(logger))
		defer rec.Close(cmd.Context())
		sessOpts = append(sessOpts, session.WithRecorder(rec))
	}

	sess, err := session.New(replayUser, session.ModeCamera, replayGoal, sessOpts...)
	if err != nil {
		return err
	}
	tr, err := tracking.NewCameraTracker(trackingCfg, sess,
		tracking.WithClock(clk),
		tracking.WithLogger(logger))
	if err != nil {
		return err
	}

	sum, err := tr.Replay(cmd.Context(), detection.NewReplay(f), clk)
	if err != nil {
		return err
	}
	printSummary(os.Stdout, sum)
	return nil
}
