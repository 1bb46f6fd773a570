package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-focus/internal/log"
	"github.com/teslashibe/go-focus/pkg/notify"
	"github.com/teslashibe/go-focus/pkg/session"
	"github.com/teslashibe/go-focus/pkg/tracking"
	"github.com/teslashibe/go-focus/pkg/tui"
)

var (
	trackUser   string
	trackGoal   float64
	trackMode   string
	trackPreset string
)

// runner is what track needs from either tracker.
type runner interface {
	tui.Tracker
	Run(ctx context.Context) (session.Summary, error)
	OnUpdate(fn func(tracking.Update))
}

func newTrackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "track",
		Short: "Track a focus session in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runTrackCmd,
	}
	cmd.Flags().StringVar(&trackUser, "user", os.Getenv("USER"), "user name")
	cmd.Flags().Float64Var(&trackGoal, "goal", 1, "focus goal in hours")
	cmd.Flags().StringVar(&trackMode, "mode", string(session.ModeNoCamera), "camera or no-camera")
	cmd.Flags().StringVar(&trackPreset, "preset", "", "tracking preset (overrides [tracking] preset)")
	return cmd
}

func runTrackCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if trackPreset != "" {
		cfg.Tracking.Preset = trackPreset
	}
	mode, err := session.ParseMode(trackMode)
	if err != nil {
		return err
	}
	trackingCfg, err := cfg.TrackingConfig()
	if err != nil {
		return err
	}

	// The terminal belongs to the view from here on
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath()), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	logger := log.Setup(log.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Output: logFile})

	ctx := cmd.Context()
	b, err := openBackend(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer b.Close()

	var view *tui.Model
	alerts := notify.NotifierFunc(func(a notify.Alert) {
		b.notifier.Notify(a)
		view.Notify(a)
	})

	sess, err := session.New(trackUser, mode, trackGoal,
		session.WithRecorder(b.recorder),
		session.WithNotifier(alerts),
		session.WithDistractionAlert(cfg.Tracking.DistractionAlert),
		session.WithLogger(logger))
	if err != nil {
		return err
	}

	trackerOpts := []tracking.Option{
		tracking.WithLogger(logger),
		tracking.WithNotifier(alerts),
	}
	var tr runner
	if mode == session.ModeCamera {
		dev, err := openCamera(cfg, logger)
		if err != nil {
			return err
		}
		defer dev.Close()
		trackerOpts = append(trackerOpts, tracking.WithCamera(dev.webcam, dev.detector))
		if tr, err = tracking.NewCameraTracker(trackingCfg, sess, trackerOpts...); err != nil {
			return err
		}
	} else {
		if tr, err = tracking.NewActivityTracker(trackingCfg, sess, trackerOpts...); err != nil {
			return err
		}
	}

	view = tui.New(tr)
	tr.OnUpdate(view.Observe)

	runErr := make(chan error, 1)
	go func() {
		_, err := tr.Run(ctx)
		runErr <- err
	}()

	program := tea.NewProgram(view, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		tr.Stop()
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	sum := tr.Stop()
	if err := <-runErr; err != nil {
		return err
	}
	printSummary(os.Stdout, sum)
	return nil
}
