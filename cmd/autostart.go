package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clipsqueeze/clipsqueeze/internal/autostart"
)

var autostartCmd = &cobra.Command{
	Use:       "autostart on|off|status",
	Short:     "Manage starting clipsqueeze on login",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable: %w", err)
		}
		mgr, err := autostart.New(exe)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		switch args[0] {
		case "on":
			if err := mgr.Enable(); err != nil {
				return err
			}
			fmt.Fprintf(w, "Autostart enabled (%s)\n", mgr.Path())
		case "off":
			if err := mgr.Disable(); err != nil {
				return err
			}
			fmt.Fprintln(w, "Autostart disabled")
		default:
			enabled, err := mgr.Enabled()
			if err != nil {
				return err
			}
			if enabled {
				fmt.Fprintln(w, "Autostart: enabled")
			} else {
				fmt.Fprintln(w, "Autostart: disabled")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(autostartCmd)
}
