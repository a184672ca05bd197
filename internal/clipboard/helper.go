package clipboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"slices"
	"strings"

	"go.uber.org/zap"
)

type family int

const (
	familyWayland family = iota
	familyX11
)

// runHelper executes one clipboard helper invocation. A non-nil stdin marks
// a write: the payload is piped in and no output is captured, because both
// wl-copy and xclip fork a child that owns the selection and would hold the
// stdout pipe open forever. Declared as a var so tests can substitute a fake
// without the tools installed.
var runHelper = func(ctx context.Context, stdin []byte, argv ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
		return nil, cmd.Run()
	}
	return cmd.Output()
}

var lookPath = exec.LookPath

func haveTools(names ...string) bool {
	for _, n := range names {
		if _, err := lookPath(n); err != nil {
			return false
		}
	}
	return true
}

// helperConn talks to the clipboard with one helper invocation per
// operation. An optional compiled-in native bridge accelerates the image
// read/write paths on X11.
type helperConn struct {
	family family
	bridge imageBridge
	logger *zap.Logger
}

// New selects the first usable helper family: wl-clipboard when a Wayland
// session is visible, xclip when an X11 display is.
func New(logger *zap.Logger) (Conn, error) {
	switch {
	case os.Getenv("WAYLAND_DISPLAY") != "" && haveTools("wl-paste", "wl-copy"):
		logger.Debug("clipboard backend selected", zap.String("backend", "wl-clipboard"))
		return &helperConn{family: familyWayland, logger: logger}, nil
	case os.Getenv("DISPLAY") != "" && haveTools("xclip"):
		logger.Debug("clipboard backend selected", zap.String("backend", "xclip"))
		return &helperConn{family: familyX11, bridge: nativeBridge(), logger: logger}, nil
	}
	return nil, errors.New("no clipboard helper available: need wl-clipboard (Wayland) or xclip (X11)")
}

func (c *helperConn) listCmd() []string {
	if c.family == familyWayland {
		return []string{"wl-paste", "--list-types"}
	}
	return []string{"xclip", "-selection", "clipboard", "-t", "TARGETS", "-o"}
}

func (c *helperConn) readCmd(target string) []string {
	if c.family == familyWayland {
		return []string{"wl-paste", "--no-newline", "--type", target}
	}
	return []string{"xclip", "-selection", "clipboard", "-t", target, "-o"}
}

func (c *helperConn) writeCmd(target string) []string {
	if c.family == familyWayland {
		return []string{"wl-copy", "--type", target}
	}
	return []string{"xclip", "-selection", "clipboard", "-t", target, "-i"}
}

func (c *helperConn) clearCmd() []string {
	if c.family == familyWayland {
		return []string{"wl-copy", "--clear"}
	}
	return []string{"xclip", "-selection", "clipboard", "-i"}
}

// targets lists the formats the current clipboard owner advertises. A
// helper exit status means there is no owner, which reads as empty.
func (c *helperConn) targets(ctx context.Context) ([]string, error) {
	out, err := runHelper(ctx, nil, c.listCmd()...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("list clipboard targets: %w", err)
	}
	var targets []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			targets = append(targets, line)
		}
	}
	return targets, nil
}

// readTarget fetches one format's bytes. Exit status means the target
// vanished between the listing and the read; that reads as absent.
func (c *helperConn) readTarget(ctx context.Context, target string) ([]byte, error) {
	out, err := runHelper(ctx, nil, c.readCmd(target)...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("read clipboard target %s: %w", target, err)
	}
	return out, nil
}

func (c *helperConn) readImagePNG(ctx context.Context) ([]byte, error) {
	if c.bridge != nil {
		if data := c.bridge.readPNG(); len(data) > 0 {
			return data, nil
		}
	}
	return c.readTarget(ctx, "image/png")
}

func (c *helperConn) Snapshot(ctx context.Context) (*Snapshot, error) {
	targets, err := c.targets(ctx)
	if err != nil {
		return nil, err
	}
	if slices.Contains(targets, "text/uri-list") {
		data, err := c.readTarget(ctx, "text/uri-list")
		if err != nil {
			return nil, err
		}
		if files := parseURIList(data); len(files) > 0 {
			return &Snapshot{Kind: KindFileList, Files: files}, nil
		}
	}
	if slices.Contains(targets, "image/png") {
		data, err := c.readImagePNG(ctx)
		if err != nil {
			return nil, err
		}
		if len(data) > 0 {
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("decode clipboard png: %w", err)
			}
			return &Snapshot{Kind: KindImage, Image: bitmapFromImage(img)}, nil
		}
	}
	return &Snapshot{Kind: KindEmpty}, nil
}

func (c *helperConn) ReadFormat(ctx context.Context, name string) ([]byte, error) {
	targets, err := c.targets(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(targets, name) {
		return nil, nil
	}
	return c.readTarget(ctx, name)
}

func (c *helperConn) WriteFileList(ctx context.Context, path string) error {
	if _, err := runHelper(ctx, buildURIList(path), c.writeCmd("text/uri-list")...); err != nil {
		return fmt.Errorf("write file list: %w", err)
	}
	c.logger.Debug("clipboard file list set", zap.String("path", path))
	return nil
}

func (c *helperConn) WriteImage(ctx context.Context, img *Bitmap) error {
	nrgba, err := img.toImage()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, nrgba); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	if c.bridge != nil {
		if err := c.bridge.writePNG(buf.Bytes()); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
	} else if _, err := runHelper(ctx, buf.Bytes(), c.writeCmd("image/png")...); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	c.logger.Debug("clipboard image set",
		zap.Int("width", img.Width), zap.Int("height", img.Height))
	return nil
}

func (c *helperConn) Clear(ctx context.Context) error {
	if _, err := runHelper(ctx, []byte{}, c.clearCmd()...); err != nil {
		return fmt.Errorf("clear clipboard: %w", err)
	}
	return nil
}

func (c *helperConn) Close() error { return nil }
