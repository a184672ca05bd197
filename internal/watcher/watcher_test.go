package watcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/clipsqueeze/clipsqueeze/internal/clipboard"
)

// mockSource implements clipboard.ChangeSource for testing.
type mockSource struct {
	waitFunc    func(ctx context.Context) error
	closeCalled atomic.Bool
}

func (m *mockSource) Wait(ctx context.Context) error {
	if m.waitFunc != nil {
		return m.waitFunc(ctx)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Close() error {
	m.closeCalled.Store(true)
	return nil
}

// shortBackoff makes failed cycles cheap for the duration of a test.
func shortBackoff(t *testing.T) {
	t.Helper()
	orig := errorBackoff
	errorBackoff = time.Millisecond
	t.Cleanup(func() { errorBackoff = orig })
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRun_HandlesEachChange(t *testing.T) {
	var fires atomic.Int32
	src := &mockSource{waitFunc: func(ctx context.Context) error {
		if fires.Add(1) <= 3 {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	}}

	var handled atomic.Int32
	handle := func(context.Context) error {
		handled.Add(1)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, zap.NewNop(), func() (clipboard.ChangeSource, error) { return src, nil }, handle)
	}()

	waitFor(t, func() bool { return handled.Load() == 3 }, "handler did not run for each change")
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit after context cancel")
	}

	if !src.closeCalled.Load() {
		t.Error("Close() was not called on shutdown")
	}
}

func TestRun_HandlerErrorsDoNotStopLoop(t *testing.T) {
	shortBackoff(t)

	var fires atomic.Int32
	src := &mockSource{waitFunc: func(ctx context.Context) error {
		if fires.Add(1) <= 3 {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	}}

	var handled atomic.Int32
	handle := func(context.Context) error {
		handled.Add(1)
		return errors.New("decode failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, zap.NewNop(), func() (clipboard.ChangeSource, error) { return src, nil }, handle)
	}()

	waitFor(t, func() bool { return handled.Load() == 3 }, "loop stopped after a handler error")
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
}

func TestRun_CircuitBreakerRestart(t *testing.T) {
	shortBackoff(t)
	waitErr := errors.New("persistent error")

	var mu sync.Mutex
	var sources []*mockSource
	factory := func() (clipboard.ChangeSource, error) {
		mu.Lock()
		defer mu.Unlock()
		m := &mockSource{waitFunc: func(context.Context) error { return waitErr }}
		sources = append(sources, m)
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, zap.NewNop(), factory, func(context.Context) error { return nil })
	}()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sources) >= 2
	}, "circuit breaker did not recreate the source")
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit")
	}

	mu.Lock()
	defer mu.Unlock()
	if !sources[0].closeCalled.Load() {
		t.Error("first source was not closed before the restart")
	}
	last := sources[len(sources)-1]
	if !last.closeCalled.Load() {
		t.Error("latest source was not closed on shutdown")
	}
}

func TestRun_FactoryFailureAborts(t *testing.T) {
	factoryErr := errors.New("no display")
	err := Run(context.Background(), zap.NewNop(),
		func() (clipboard.ChangeSource, error) { return nil, factoryErr },
		func(context.Context) error { return nil })
	if !errors.Is(err, factoryErr) {
		t.Errorf("Run() error = %v, want wrapped factory error", err)
	}
}

func TestRun_RestartFactoryFailureAborts(t *testing.T) {
	shortBackoff(t)
	factoryErr := errors.New("tools uninstalled")

	var calls atomic.Int32
	factory := func() (clipboard.ChangeSource, error) {
		if calls.Add(1) == 1 {
			return &mockSource{waitFunc: func(context.Context) error {
				return errors.New("persistent error")
			}}, nil
		}
		return nil, factoryErr
	}

	err := Run(context.Background(), zap.NewNop(), factory,
		func(context.Context) error { return nil })
	if !errors.Is(err, factoryErr) {
		t.Errorf("Run() error = %v, want wrapped restart failure", err)
	}
}

func TestRun_CancelDuringWait(t *testing.T) {
	src := &mockSource{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, zap.NewNop(), func() (clipboard.ChangeSource, error) { return src, nil },
			func(context.Context) error { return nil })
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not exit after context cancel")
	}
	if !src.closeCalled.Load() {
		t.Error("Close() was not called on shutdown")
	}
}
