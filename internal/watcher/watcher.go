// Package watcher runs the clipboard watch loop: block until the clipboard
// changes, handle the change synchronously, wait again. Nothing is queued;
// changes that land while a handler runs surface as the next notification.
package watcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clipsqueeze/clipsqueeze/internal/clipboard"
)

const maxConsecutiveErrors = 5

// errorBackoff paces the loop after a failed cycle. Declared as a var so
// tests can shorten it.
var errorBackoff = 500 * time.Millisecond

// SourceFactory creates a change-notification source.
type SourceFactory func() (clipboard.ChangeSource, error)

// Handler processes one clipboard change.
type Handler func(ctx context.Context) error

// Run watches the clipboard until the context is cancelled. Handler errors
// are logged and the loop continues; after maxConsecutiveErrors failed
// cycles the change source is closed and recreated through the factory.
func Run(ctx context.Context, logger *zap.Logger, newSource SourceFactory, handle Handler) error {
	source, err := newSource()
	if err != nil {
		return fmt.Errorf("start change source: %w", err)
	}
	// source is nil after a failed restart.
	defer func() {
		if source != nil {
			source.Close()
		}
	}()

	logger.Info("clipboard watcher started", zap.String("backend", source.Name()))

	consecutiveErrors := 0
	for {
		if err := cycle(ctx, source, handle); err != nil {
			if ctx.Err() != nil {
				logger.Info("watcher shutting down")
				return nil
			}
			consecutiveErrors++
			logger.Warn("watch cycle failed",
				zap.Int("consecutive", consecutiveErrors),
				zap.Int("max", maxConsecutiveErrors),
				zap.Error(err))

			if consecutiveErrors >= maxConsecutiveErrors {
				logger.Warn("too many consecutive errors, restarting change source")
				source.Close()

				source, err = newSource()
				if err != nil {
					return fmt.Errorf("restart change source: %w", err)
				}
				consecutiveErrors = 0
			}

			select {
			case <-ctx.Done():
				logger.Info("watcher shutting down")
				return nil
			case <-time.After(errorBackoff):
			}
			continue
		}
		consecutiveErrors = 0
	}
}

// cycle runs one watch iteration: block for a change, then process it.
func cycle(ctx context.Context, source clipboard.ChangeSource, handle Handler) error {
	if err := source.Wait(ctx); err != nil {
		return fmt.Errorf("wait for change: %w", err)
	}
	return handle(ctx)
}
