package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clipsqueeze/clipsqueeze/internal/app"
	"github.com/clipsqueeze/clipsqueeze/internal/daemon"
	"github.com/clipsqueeze/clipsqueeze/internal/logging"
	"github.com/clipsqueeze/clipsqueeze/internal/platform"
)

var (
	daemonize  bool
	foreground bool
	verbose    bool
)

// checkEnvironment is a seam for tests.
var checkEnvironment = platform.CheckEnvironment

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start watching the clipboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.PollInterval < 100*time.Millisecond || cfg.PollInterval > 10*time.Second {
			return fmt.Errorf("poll_interval must be between 100ms and 10s (got %s)", cfg.PollInterval)
		}
		if err := checkEnvironment(); err != nil {
			return err
		}

		if daemonize {
			childArgs := []string{"start", "--foreground"}
			if configPath != "" {
				childArgs = append(childArgs, "--config", configPath)
			}
			if verbose {
				childArgs = append(childArgs, "--verbose")
			}
			return daemon.Daemonize(cfg.DataDir, cfg.LogPath(), childArgs)
		}

		logger, err := logging.New(logging.Options{
			Level:   cfg.Log.Level,
			File:    cfg.LogPath(),
			Daemon:  foreground,
			Verbose: verbose,
		})
		if err != nil {
			return err
		}
		defer logger.Sync()

		return daemon.RunForeground(cmd.Context(), cfg.DataDir, func(ctx context.Context) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			return a.Run(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().BoolVarP(&daemonize, "daemon", "d", false, "Detach and run in the background")
	startCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	startCmd.Flags().BoolVar(&foreground, "foreground", false, "Run in foreground (used internally)")
	startCmd.Flags().MarkHidden("foreground")
}
