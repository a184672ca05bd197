package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/clipsqueeze/clipsqueeze/internal/control"
	"github.com/clipsqueeze/clipsqueeze/internal/daemon"
	"github.com/clipsqueeze/clipsqueeze/internal/pipeline"
)

var revertCmd = &cobra.Command{
	Use:   "revert",
	Short: "Restore the original image from the last optimization",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := control.NewClient(filepath.Join(cfg.DataDir, control.SocketName))
		err = client.Revert(cmd.Context())
		switch {
		case errors.Is(err, pipeline.ErrNoOriginal):
			return errors.New("nothing to revert: the last optimization did not start from a raw image")
		case err != nil:
			if daemon.RunningPID(cfg.DataDir) == 0 {
				return errors.New("clipsqueeze is not running")
			}
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Original image restored to the clipboard")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(revertCmd)
}
