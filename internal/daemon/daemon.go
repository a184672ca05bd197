// Package daemon manages the background process lifecycle: PID file
// bookkeeping, detached re-exec, and termination.
package daemon

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Output receives user-facing lifecycle messages. Tests redirect it.
var Output io.Writer = os.Stdout

// newDaemonCmd builds the detached re-exec command; overridable in tests.
var newDaemonCmd = func(args []string) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("daemon: resolve executable: %w", err)
	}
	cmd := exec.Command(exe, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	return cmd, nil
}

// PIDPath returns the PID file location inside the data directory.
func PIDPath(dataDir string) string {
	return filepath.Join(dataDir, "clipsqueeze.pid")
}

// RunningPID returns the PID of the running daemon, or 0 when there is none.
// Stale and corrupt PID files are removed along the way.
func RunningPID(dataDir string) int {
	pidFile := PIDPath(dataDir)
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		os.Remove(pidFile)
		return 0
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(pidFile)
		return 0
	}

	// Signal 0 probes liveness without delivering anything.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidFile)
		return 0
	}

	return pid
}

// Daemonize starts the binary detached with the given arguments. The child's
// stdout and stderr go to logPath so early startup failures are not lost.
func Daemonize(dataDir, logPath string, args []string) error {
	if pid := RunningPID(dataDir); pid != 0 {
		fmt.Fprintf(Output, "clipsqueeze is already running (PID %d)\n", pid)
		return nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("daemon: create data dir: %w", err)
	}

	child, err := newDaemonCmd(args)
	if err != nil {
		return err
	}

	logF, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("daemon: open log file: %w", err)
	}
	child.Stdout = logF
	child.Stderr = logF

	if err := child.Start(); err != nil {
		logF.Close()
		return fmt.Errorf("daemon: start background process: %w", err)
	}
	logF.Close()

	fmt.Fprintf(Output, "clipsqueeze started (PID %d), logging to %s\n", child.Process.Pid, logPath)
	return nil
}

// RunForeground claims the PID file, runs fn, and cleans up on exit.
func RunForeground(ctx context.Context, dataDir string, fn func(context.Context) error) error {
	if pid := RunningPID(dataDir); pid != 0 {
		fmt.Fprintf(Output, "clipsqueeze is already running (PID %d)\n", pid)
		return nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("daemon: create data dir: %w", err)
	}

	pidFile := PIDPath(dataDir)
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("daemon: write PID file: %w", err)
	}
	defer os.Remove(pidFile)

	return fn(ctx)
}

// Stop sends SIGTERM to the running daemon and removes the PID file.
func Stop(dataDir string) {
	pidFile := PIDPath(dataDir)
	data, err := os.ReadFile(pidFile)
	if err != nil {
		fmt.Fprintln(Output, "clipsqueeze is not running")
		return
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		os.Remove(pidFile)
		fmt.Fprintln(Output, "clipsqueeze is not running. Cleaned up corrupt PID file.")
		return
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		os.Remove(pidFile)
		fmt.Fprintln(Output, "clipsqueeze is not running. Cleaned up stale PID file.")
		return
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		os.Remove(pidFile)
		fmt.Fprintf(Output, "clipsqueeze was not running (PID %d). Cleaned up stale PID file.\n", pid)
		return
	}

	os.Remove(pidFile)
	fmt.Fprintf(Output, "clipsqueeze stopped (PID %d)\n", pid)
}
