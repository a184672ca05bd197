// Package app assembles and runs the daemon: clipboard backend, pipeline,
// journal, notifiers, control surface, and the watch loop.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/clipsqueeze/clipsqueeze/internal/autostart"
	"github.com/clipsqueeze/clipsqueeze/internal/clipboard"
	"github.com/clipsqueeze/clipsqueeze/internal/config"
	"github.com/clipsqueeze/clipsqueeze/internal/control"
	"github.com/clipsqueeze/clipsqueeze/internal/journal"
	"github.com/clipsqueeze/clipsqueeze/internal/notify"
	"github.com/clipsqueeze/clipsqueeze/internal/pipeline"
	"github.com/clipsqueeze/clipsqueeze/internal/watcher"
)

// newConn is a seam so tests can swap the clipboard backend.
var newConn = clipboard.New

// App owns every long-lived component of a running daemon. All wiring happens
// in New; Run only starts and supervises.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	conn   clipboard.Conn
	pipe   *pipeline.Pipeline
	store  *journal.Store // nil when the journal is disabled
	hub    *control.Hub
	server *control.Server
}

// New builds the component graph from configuration.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	conn, err := newConn(logger)
	if err != nil {
		return nil, err
	}

	var store *journal.Store
	if !cfg.Journal.Disabled {
		store, err = journal.Open(cfg.JournalPath())
		if err != nil {
			conn.Close()
			return nil, err
		}
	}

	hub := control.NewHub(logger)
	notifiers := notify.Multi{hub}
	if !cfg.Quiet {
		notifiers = append(notifiers, notify.NewDesktop(logger))
	}

	var record pipeline.RecordFunc
	if store != nil {
		record = recordToJournal(store, logger)
	}

	pipe := pipeline.New(pipeline.Config{
		Conn:     conn,
		Notifier: notifiers,
		Logger:   logger,
		DataDir:  cfg.DataDir,
		Record:   record,
	})

	exe, err := os.Executable()
	if err != nil {
		closeQuietly(conn, store)
		return nil, fmt.Errorf("app: resolve executable: %w", err)
	}
	mgr, err := autostart.New(exe)
	if err != nil {
		closeQuietly(conn, store)
		return nil, err
	}

	server := control.NewServer(control.Config{
		Logger:    logger,
		Pipeline:  pipe,
		Journal:   store,
		Autostart: mgr,
		Hub:       hub,
		Backend:   clipboard.BackendName(),
	})

	return &App{
		cfg:    cfg,
		logger: logger,
		conn:   conn,
		pipe:   pipe,
		store:  store,
		hub:    hub,
		server: server,
	}, nil
}

func closeQuietly(conn clipboard.Conn, store *journal.Store) {
	conn.Close()
	if store != nil {
		store.Close()
	}
}

func recordToJournal(store *journal.Store, logger *zap.Logger) pipeline.RecordFunc {
	return func(ctx context.Context, rec pipeline.RunRecord) {
		err := store.Record(ctx, journal.Entry{
			Source:       rec.Source,
			OriginalSize: rec.OriginalSize,
			NewSize:      rec.NewSize,
			Width:        rec.Width,
			Height:       rec.Height,
			Duration:     rec.Duration,
		})
		if err != nil {
			logger.Warn("journal record failed", zap.Error(err))
		}
	}
}

// SocketPath returns the control socket location inside the data directory.
func (a *App) SocketPath() string {
	return filepath.Join(a.cfg.DataDir, control.SocketName)
}

// Run serves until ctx is cancelled or a component fails beyond recovery.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- a.server.Serve(runCtx, a.SocketPath()) }()
	go func() { errs <- watcher.Run(runCtx, a.logger, a.newSource, a.pipe.Process) }()
	if a.store != nil {
		go a.pruneLoop(runCtx)
	}

	// The first component to stop takes the whole app down with it.
	err := <-errs
	cancel()
	if second := <-errs; err == nil {
		err = second
	}
	return err
}

// Close releases the clipboard backend and the journal.
func (a *App) Close() {
	closeQuietly(a.conn, a.store)
}

func (a *App) newSource() (clipboard.ChangeSource, error) {
	return clipboard.NewChangeSource(a.conn, a.cfg.PollInterval, a.logger)
}

// pruneLoop trims old journal rows once at startup and then daily.
func (a *App) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		a.prune(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *App) prune(ctx context.Context) {
	n, err := a.store.Prune(ctx, a.cfg.Journal.Retention)
	if err != nil {
		a.logger.Warn("journal prune failed", zap.Error(err))
		return
	}
	if n > 0 {
		a.logger.Info("journal pruned", zap.Int64("rows", n))
	}
}
