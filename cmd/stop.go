package cmd

import (
	"github.com/spf13/cobra"

	"github.com/clipsqueeze/clipsqueeze/internal/daemon"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the clipboard watcher",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		daemon.Stop(cfg.DataDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
