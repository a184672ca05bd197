// Package notify fans optimization progress out to user-facing surfaces.
package notify

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier receives pipeline progress signals.
type Notifier interface {
	// OptimizationStarted fires when compression work actually begins,
	// after the source is confirmed and the processing gate is held.
	OptimizationStarted(ctx context.Context)
	// OptimizationCompleted fires after the clipboard has been replaced
	// with the artifact path. Sizes are in bytes; a zero original size
	// means the platform could not report one.
	OptimizationCompleted(ctx context.Context, originalSize, newSize uint64)
}

// Multi broadcasts to every child notifier in order.
type Multi []Notifier

func (m Multi) OptimizationStarted(ctx context.Context) {
	for _, n := range m {
		n.OptimizationStarted(ctx)
	}
}

func (m Multi) OptimizationCompleted(ctx context.Context, originalSize, newSize uint64) {
	for _, n := range m {
		n.OptimizationCompleted(ctx, originalSize, newSize)
	}
}

// Desktop shows a system notification when an optimization completes.
type Desktop struct {
	logger *zap.Logger
}

func NewDesktop(logger *zap.Logger) *Desktop {
	return &Desktop{logger: logger}
}

func (d *Desktop) OptimizationStarted(context.Context) {}

func (d *Desktop) OptimizationCompleted(_ context.Context, originalSize, newSize uint64) {
	body := fmt.Sprintf("Image compressed to %s", humanize.Bytes(newSize))
	if originalSize > 0 {
		body = fmt.Sprintf("Image compressed from %s to %s",
			humanize.Bytes(originalSize), humanize.Bytes(newSize))
	}
	if err := beeep.Notify("Clipsqueeze", body, ""); err != nil {
		d.logger.Warn("desktop notification failed", zap.Error(err))
	}
}
