package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/clipsqueeze/clipsqueeze/internal/control"
	"github.com/clipsqueeze/clipsqueeze/internal/daemon"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watcher status and optimization totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		info := daemon.Status(cfg.DataDir)
		if info == nil {
			fmt.Fprintln(w, "Status:  not running")
			return nil
		}

		fmt.Fprintf(w, "Status:      running\n")
		fmt.Fprintf(w, "PID:         %d\n", info.PID)
		fmt.Fprintf(w, "Uptime:      %s\n", formatDuration(info.Uptime))
		fmt.Fprintf(w, "CPU usage:   %.1f%%\n", info.CPUPercent())
		fmt.Fprintf(w, "Memory:      %.1f MB\n", float64(info.MemoryRSSKB)/1024.0)
		fmt.Fprintf(w, "Log file:    %s\n", cfg.LogPath())

		client := control.NewClient(filepath.Join(cfg.DataDir, control.SocketName))
		st, err := client.Status(cmd.Context())
		if err != nil {
			fmt.Fprintf(w, "Daemon API:  unreachable (%v)\n", err)
			return nil
		}

		fmt.Fprintf(w, "Backend:     %s\n", st.Backend)
		fmt.Fprintf(w, "Artifact:    %s\n", st.Artifact)
		fmt.Fprintf(w, "Revertable:  %v\n", st.HasOriginal)
		if st.Totals != nil {
			fmt.Fprintf(w, "Runs:        %d\n", st.Totals.Runs)
			fmt.Fprintf(w, "Processed:   %s\n", humanize.Bytes(st.Totals.OriginalBytes))
			fmt.Fprintf(w, "Written:     %s\n", humanize.Bytes(st.Totals.NewBytes))
			fmt.Fprintf(w, "Saved:       %s\n", st.Totals.Saved)
			if st.Totals.LastRunAt != nil {
				fmt.Fprintf(w, "Last run:    %s\n", humanize.Time(*st.Totals.LastRunAt))
			}
		}
		return nil
	},
}

// formatDuration formats a duration as "Xh Ym Zs", omitting zero leading components.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 1 {
		return "0s"
	}
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
