package app

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clipsqueeze/clipsqueeze/internal/clipboard"
	"github.com/clipsqueeze/clipsqueeze/internal/config"
	"github.com/clipsqueeze/clipsqueeze/internal/control"
)

// mockConn is a scriptable clipboard backend. Its fingerprint content flips
// once after the first poll so exactly one change event fires.
type mockConn struct {
	mu        sync.Mutex
	snapshot  *clipboard.Snapshot
	reads     atomic.Int64
	fileLists []string
	images    []*clipboard.Bitmap
	clears    int
}

func (m *mockConn) Snapshot(context.Context) (*clipboard.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return &clipboard.Snapshot{Kind: clipboard.KindEmpty}, nil
	}
	return m.snapshot, nil
}

func (m *mockConn) ReadFormat(_ context.Context, name string) ([]byte, error) {
	if name != "text/uri-list" && name != "image/png" {
		return nil, nil
	}
	if m.reads.Add(1) <= 2 {
		return []byte("before"), nil
	}
	return []byte("after"), nil
}

func (m *mockConn) WriteFileList(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fileLists = append(m.fileLists, path)
	return nil
}

func (m *mockConn) WriteImage(_ context.Context, img *clipboard.Bitmap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images = append(m.images, img)
	return nil
}

func (m *mockConn) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	return nil
}

func (m *mockConn) Close() error { return nil }

func (m *mockConn) writtenFileLists() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.fileLists...)
}

func (m *mockConn) writtenImages() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.images)
}

func overrideConn(t *testing.T, conn clipboard.Conn) {
	t.Helper()
	orig := newConn
	newConn = func(*zap.Logger) (clipboard.Conn, error) { return conn, nil }
	t.Cleanup(func() { newConn = orig })
}

func rawSnapshot() *clipboard.Snapshot {
	pix := make([]byte, 2*2*4)
	for i := range pix {
		pix[i] = byte(i + 1)
	}
	return &clipboard.Snapshot{
		Kind:  clipboard.KindImage,
		Image: &clipboard.Bitmap{Width: 2, Height: 2, Pix: pix},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	// No event tools in CI; force the poll backend.
	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("DISPLAY", "")
	return &config.Config{
		DataDir:      t.TempDir(),
		PollInterval: 10 * time.Millisecond,
		Quiet:        true,
		Journal: config.JournalConfig{
			Retention: 30 * 24 * time.Hour,
		},
		Log: config.LogConfig{Level: "info"},
	}
}

func TestNew_BuildsComponentGraph(t *testing.T) {
	overrideConn(t, &mockConn{})
	cfg := testConfig(t)

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.NotNil(t, a.pipe)
	assert.NotNil(t, a.store, "journal enabled by default")
	assert.NotNil(t, a.server)
	assert.Equal(t, cfg.DataDir+"/control.sock", a.SocketPath())
}

func TestNew_JournalDisabled(t *testing.T) {
	overrideConn(t, &mockConn{})
	cfg := testConfig(t)
	cfg.Journal.Disabled = true

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.Nil(t, a.store)
	_, err = os.Stat(cfg.JournalPath())
	assert.True(t, os.IsNotExist(err), "no journal file when disabled")
}

func TestRun_EndToEnd(t *testing.T) {
	conn := &mockConn{snapshot: rawSnapshot()}
	overrideConn(t, conn)
	cfg := testConfig(t)

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	client := control.NewClient(a.SocketPath())

	// The poll source fires once; wait for the run to land in the journal.
	var status *control.StatusResponse
	require.Eventually(t, func() bool {
		s, err := client.Status(context.Background())
		if err != nil || s.Totals == nil {
			return false
		}
		status = s
		return s.Totals.Runs >= 1
	}, 5*time.Second, 20*time.Millisecond, "optimization recorded")

	assert.Equal(t, "poll", status.Backend)
	assert.True(t, status.HasOriginal, "raw image leaves revert state")
	assert.EqualValues(t, 1, status.Totals.Runs)

	lists := conn.writtenFileLists()
	require.Len(t, lists, 1)
	assert.Equal(t, a.pipe.ArtifactPath(), lists[0])
	if _, err := os.Stat(a.pipe.ArtifactPath()); err != nil {
		t.Fatalf("artifact not written: %v", err)
	}

	require.NoError(t, client.Revert(context.Background()))
	assert.Equal(t, 1, conn.writtenImages(), "revert restored the original image")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_StopsCleanlyWithoutEvents(t *testing.T) {
	overrideConn(t, &mockConn{})
	cfg := testConfig(t)
	cfg.Journal.Disabled = true

	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	client := control.NewClient(a.SocketPath())
	require.Eventually(t, func() bool {
		_, err := client.Status(context.Background())
		return err == nil
	}, 5*time.Second, 20*time.Millisecond, "control socket up")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
