package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/clipsqueeze/clipsqueeze/internal/config"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clipsqueeze",
	Short: "Keep clipboard images small by re-encoding them as JPEG files",
	Long: `clipsqueeze watches the clipboard for images. When one appears, it re-encodes
the pixels as a quality-60 JPEG, writes the file into its data directory, and
replaces the clipboard with that file, so pasting stays cheap everywhere.

Copying an image file (png, jpg, jpeg, bmp, tiff, webp) gets the same
treatment. After a raw-image optimization the original pixels are kept in
memory until the next run, so "clipsqueeze revert" can put them back.`,
}

// ExecuteContext adds all child commands to the root command and runs it.
// Called once from main.main().
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves --config or the default location and loads it. A
// missing file yields the defaults.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default ~/.config/clipsqueeze/config.yaml)")
}
