package notify

import (
	"context"
	"testing"
)

// recorder counts signals for assertions.
type recorder struct {
	started   int
	completed int
	lastOrig  uint64
	lastNew   uint64
}

func (r *recorder) OptimizationStarted(context.Context) { r.started++ }

func (r *recorder) OptimizationCompleted(_ context.Context, originalSize, newSize uint64) {
	r.completed++
	r.lastOrig, r.lastNew = originalSize, newSize
}

func TestMulti_FansOut(t *testing.T) {
	first, second := &recorder{}, &recorder{}
	m := Multi{first, second}

	ctx := context.Background()
	m.OptimizationStarted(ctx)
	m.OptimizationCompleted(ctx, 2048, 512)

	for i, r := range []*recorder{first, second} {
		if r.started != 1 || r.completed != 1 {
			t.Errorf("notifier %d: started=%d completed=%d, want 1/1", i, r.started, r.completed)
		}
		if r.lastOrig != 2048 || r.lastNew != 512 {
			t.Errorf("notifier %d: sizes = %d/%d, want 2048/512", i, r.lastOrig, r.lastNew)
		}
	}
}

func TestMulti_EmptyIsNoop(t *testing.T) {
	var m Multi
	ctx := context.Background()
	m.OptimizationStarted(ctx)
	m.OptimizationCompleted(ctx, 1, 1)
}
