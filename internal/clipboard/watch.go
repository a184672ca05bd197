package clipboard

import (
	"bufio"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// ChangeSource delivers clipboard change notifications.
type ChangeSource interface {
	// Wait blocks until the clipboard changes, the source fails, or the
	// context is cancelled.
	Wait(ctx context.Context) error
	// Name identifies the backend for diagnostics.
	Name() string
	Close() error
}

// NewChangeSource picks the best available notification backend: wl-paste
// --watch on Wayland, clipnotify (XFixes events) on X11, or fingerprint
// polling when no event tool is installed.
func NewChangeSource(conn Conn, pollInterval time.Duration, logger *zap.Logger) (ChangeSource, error) {
	switch {
	case os.Getenv("WAYLAND_DISPLAY") != "" && haveTools("wl-paste"):
		return newWLWatchSource(logger)
	case os.Getenv("DISPLAY") != "" && haveTools("clipnotify"):
		logger.Info("watching clipboard via clipnotify")
		return &clipnotifySource{}, nil
	}
	logger.Info("no clipboard event tool found, falling back to polling",
		zap.Duration("interval", pollInterval))
	return newPollSource(conn, pollInterval), nil
}

// BackendName reports which backend NewChangeSource would select, without
// starting it.
func BackendName() string {
	switch {
	case os.Getenv("WAYLAND_DISPLAY") != "" && haveTools("wl-paste"):
		return "wl-paste"
	case os.Getenv("DISPLAY") != "" && haveTools("clipnotify"):
		return "clipnotify"
	}
	return "poll"
}

// clipnotifySource runs one clipnotify process per event; the process exits
// when the clipboard selection changes ownership.
type clipnotifySource struct{}

func (s *clipnotifySource) Wait(ctx context.Context) error {
	if _, err := runHelper(ctx, nil, "clipnotify", "-s", "clipboard"); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("clipnotify: %w", err)
	}
	return nil
}

func (s *clipnotifySource) Name() string { return "clipnotify" }
func (s *clipnotifySource) Close() error { return nil }

// newWatchCommand creates the persistent wl-paste watcher process, which
// prints one line per clipboard change. Declared as a var so tests can
// override it with a fake process.
var newWatchCommand = func() *exec.Cmd {
	return exec.Command("wl-paste", "--watch", "echo", "change")
}

// wlWatchSource scans the watcher process's stdout, one line per change.
// Bursts coalesce into a single pending event.
type wlWatchSource struct {
	cmd    *exec.Cmd
	events chan struct{}
}

func newWLWatchSource(logger *zap.Logger) (*wlWatchSource, error) {
	cmd := newWatchCommand()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start wl-paste watcher: %w", err)
	}

	s := &wlWatchSource{cmd: cmd, events: make(chan struct{}, 1)}
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			select {
			case s.events <- struct{}{}:
			default:
			}
		}
		close(s.events)
	}()

	logger.Info("watching clipboard via wl-paste --watch")
	return s, nil
}

func (s *wlWatchSource) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-s.events:
		if !ok {
			return errors.New("wl-paste watcher exited")
		}
		return nil
	}
}

func (s *wlWatchSource) Name() string { return "wl-paste" }

func (s *wlWatchSource) Close() error {
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	return s.cmd.Wait()
}

// pollSource detects changes by fingerprinting clipboard content at a fixed
// interval. The first tick primes the baseline so pre-existing content does
// not fire a change.
type pollSource struct {
	conn     Conn
	interval time.Duration
	lastSum  string
	primed   bool
}

func newPollSource(conn Conn, interval time.Duration) *pollSource {
	return &pollSource{conn: conn, interval: interval}
}

func (s *pollSource) Wait(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sum, err := s.fingerprint(ctx)
			if err != nil {
				return err
			}
			if !s.primed {
				s.primed, s.lastSum = true, sum
				continue
			}
			if sum != s.lastSum {
				s.lastSum = sum
				return nil
			}
		}
	}
}

// fingerprint hashes the clipboard targets the pipeline cares about.
func (s *pollSource) fingerprint(ctx context.Context) (string, error) {
	h := sha256.New()
	for _, target := range []string{"text/uri-list", "image/png"} {
		data, err := s.conn.ReadFormat(ctx, target)
		if err != nil {
			return "", err
		}
		h.Write(data)
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func (s *pollSource) Name() string { return "poll" }
func (s *pollSource) Close() error { return nil }
