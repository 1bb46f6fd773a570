// Command focus tracks focus sessions from a webcam or from keyboard and
// mouse activity, serves them over HTTP and reports on past sessions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/go-focus/internal/config"
	"github.com/teslashibe/go-focus/internal/log"
)

var (
	configPath string
	logLevel   string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "focus",
		Short:        "Real-time focus tracker",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTrackCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newFeedCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newExportCmd())
	return rootCmd
}

// loadConfig reads the config file, applies --log-level and sets up the
// global logger on stderr.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	log.Setup(log.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON, Output: os.Stderr})
	return cfg, nil
}

func logErrf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}
