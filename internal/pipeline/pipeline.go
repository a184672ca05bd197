// Package pipeline turns clipboard changes into compressed JPEG artifacts
// and can undo the last replacement. One optimization runs at a time; extra
// triggers are dropped, not queued.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clipsqueeze/clipsqueeze/internal/clipboard"
	"github.com/clipsqueeze/clipsqueeze/internal/encoder"
	"github.com/clipsqueeze/clipsqueeze/internal/notify"
)

// ArtifactName is the fixed artifact filename inside the data directory.
const ArtifactName = "optimized.jpg"

// ErrNoOriginal reports a revert request with no stored original image.
var ErrNoOriginal = errors.New("no original image stored")

// RunRecord describes one completed optimization.
type RunRecord struct {
	Source       string
	OriginalSize uint64
	NewSize      uint64
	Width        int
	Height       int
	Duration     time.Duration
}

// RecordFunc persists one completed run. Failures are the implementation's
// to absorb; the pipeline never retries or blocks on recording.
type RecordFunc func(ctx context.Context, rec RunRecord)

// gate is the single-slot processing permit. Watcher triggers try and drop;
// command handlers block until the slot frees.
type gate struct {
	mu sync.Mutex
}

func (g *gate) tryAcquire() bool { return g.mu.TryLock() }
func (g *gate) acquire()         { g.mu.Lock() }
func (g *gate) release()         { g.mu.Unlock() }

// revertStore retains the most recent raw clipboard image so a compression
// can be undone. File-sourced originals are never stored; the file itself
// remains on disk.
type revertStore struct {
	mu  sync.Mutex
	img *clipboard.Bitmap
}

func (s *revertStore) store(img *clipboard.Bitmap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.img = img
}

func (s *revertStore) peek() (*clipboard.Bitmap, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img, s.img != nil
}

// Config wires a Pipeline's collaborators.
type Config struct {
	Conn     clipboard.Conn
	Notifier notify.Notifier
	Logger   *zap.Logger
	DataDir  string
	Record   RecordFunc // optional
}

// Pipeline owns the clipboard replacement flow and the revert state.
type Pipeline struct {
	conn     clipboard.Conn
	notifier notify.Notifier
	logger   *zap.Logger
	record   RecordFunc
	dataDir  string
	artifact string

	gate   gate
	revert revertStore

	// encode is a seam for tests; production uses encoder.EncodeJPEG.
	encode func(rgb []byte, width, height int) ([]byte, error)
}

func New(cfg Config) *Pipeline {
	dataDir := filepath.Clean(cfg.DataDir)
	return &Pipeline{
		conn:     cfg.Conn,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		record:   cfg.Record,
		dataDir:  dataDir,
		artifact: filepath.Join(dataDir, ArtifactName),
		encode:   encoder.EncodeJPEG,
	}
}

// ArtifactPath returns where the compressed JPEG is written.
func (p *Pipeline) ArtifactPath() string { return p.artifact }

// HasOriginal reports whether a revert would currently succeed.
func (p *Pipeline) HasOriginal() bool {
	_, ok := p.revert.peek()
	return ok
}

// Process runs one optimization attempt against the current clipboard
// contents. Snapshots with nothing to compress and triggers that arrive
// while a run is in flight are quiet no-ops; real failures surface as
// errors for the watcher to log.
func (p *Pipeline) Process(ctx context.Context) error {
	snap, err := p.conn.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("read clipboard: %w", err)
	}
	if snap.Kind == clipboard.KindEmpty {
		return nil
	}

	originalSize := p.originalSize(ctx, snap)

	if p.selfTriggered(snap) {
		p.logger.Debug("skipping own artifact announcement")
		return nil
	}

	if !p.gate.tryAcquire() {
		p.logger.Info("optimization already in flight, dropping trigger")
		return nil
	}
	defer p.gate.release()

	img, err := p.resolve(snap)
	if err != nil {
		return fmt.Errorf("resolve clipboard source: %w", err)
	}
	if img == nil {
		return nil
	}

	if snap.Kind == clipboard.KindImage {
		p.revert.store(snap.Image)
	}

	start := time.Now()
	p.notifier.OptimizationStarted(ctx)

	data, err := p.encode(img.RGB, img.Width, img.Height)
	if err != nil {
		var fault *encoder.Fault
		if errors.As(err, &fault) {
			p.logger.Error("encoder fault, clipboard left untouched", zap.Any("reason", fault.Reason))
			return nil
		}
		return fmt.Errorf("compress image: %w", err)
	}

	if err := p.writeArtifact(data); err != nil {
		return err
	}
	if err := p.replaceClipboard(ctx); err != nil {
		return err
	}

	took := time.Since(start)
	p.notifier.OptimizationCompleted(ctx, originalSize, uint64(len(data)))
	p.logger.Info("clipboard image optimized",
		zap.String("source", snap.Kind.String()),
		zap.Uint64("original_bytes", originalSize),
		zap.Int("optimized_bytes", len(data)),
		zap.Duration("took", took))

	if p.record != nil {
		p.record(ctx, RunRecord{
			Source:       snap.Kind.String(),
			OriginalSize: originalSize,
			NewSize:      uint64(len(data)),
			Width:        img.Width,
			Height:       img.Height,
			Duration:     took,
		})
	}
	return nil
}

// Revert restores the last raw original to the clipboard. It blocks until
// any in-flight optimization finishes. The stored image stays in place, so
// repeated reverts restore the same original.
func (p *Pipeline) Revert(ctx context.Context) error {
	p.gate.acquire()
	defer p.gate.release()

	img, ok := p.revert.peek()
	if !ok {
		return ErrNoOriginal
	}
	if err := p.conn.Clear(ctx); err != nil {
		return fmt.Errorf("clear clipboard: %w", err)
	}
	if err := p.conn.WriteImage(ctx, img); err != nil {
		return fmt.Errorf("restore original image: %w", err)
	}
	p.logger.Info("clipboard restored to original image",
		zap.Int("width", img.Width), zap.Int("height", img.Height))
	return nil
}

// writeArtifact persists the JPEG before any clipboard mutation. A failed
// write leaves the clipboard alone.
func (p *Pipeline) writeArtifact(data []byte) error {
	if err := os.MkdirAll(p.dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(p.artifact, data, 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}

// replaceClipboard clears the clipboard, then sets the artifact file list.
func (p *Pipeline) replaceClipboard(ctx context.Context) error {
	if err := p.conn.Clear(ctx); err != nil {
		return fmt.Errorf("clear clipboard: %w", err)
	}
	if err := p.conn.WriteFileList(ctx, p.artifact); err != nil {
		return fmt.Errorf("set clipboard file list: %w", err)
	}
	return nil
}
