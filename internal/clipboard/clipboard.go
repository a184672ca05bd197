// Package clipboard reads and writes the system clipboard through external
// helper tools (wl-clipboard on Wayland, xclip on X11) and delivers change
// notifications. All image data crosses the clipboard boundary as PNG, the
// one format both tool families and every major desktop environment agree on.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"net/url"
	"strings"
)

// Kind discriminates what a Snapshot holds.
type Kind int

const (
	KindEmpty Kind = iota
	KindFileList
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindFileList:
		return "file-list"
	case KindImage:
		return "image"
	default:
		return "empty"
	}
}

// Snapshot is a single point-in-time read of the clipboard. Exactly one
// variant is populated, chosen in priority order: file list, then image.
type Snapshot struct {
	Kind  Kind
	Files []string // KindFileList: absolute local paths
	Image *Bitmap  // KindImage
}

// Bitmap is decoded clipboard image data, 4 bytes per pixel in
// non-premultiplied RGBA order.
type Bitmap struct {
	Width  int
	Height int
	Pix    []byte
}

// ErrPixelStride reports pixel data whose length does not match the declared
// dimensions. Bitmaps built by this package hold the invariant by
// construction; the check guards data that crossed a Conn boundary.
var ErrPixelStride = errors.New("pixel data does not match dimensions")

// Conn abstracts clipboard operations for testability.
type Conn interface {
	// Snapshot reads the current clipboard contents.
	Snapshot(ctx context.Context) (*Snapshot, error)
	// ReadFormat returns the raw bytes of the named platform format (MIME
	// target), or nil if the current owner does not advertise it.
	ReadFormat(ctx context.Context, name string) ([]byte, error)
	// WriteFileList replaces the clipboard with a single-entry file list.
	WriteFileList(ctx context.Context, path string) error
	// WriteImage replaces the clipboard with raw image data.
	WriteImage(ctx context.Context, img *Bitmap) error
	// Clear empties the clipboard.
	Clear(ctx context.Context) error
	Close() error
}

// imageBridge provides direct image transfer when a native clipboard
// backend is compiled in (see the clipboard_x11 build tag).
type imageBridge interface {
	readPNG() []byte
	writePNG(data []byte) error
}

// toImage converts the bitmap to an NRGBA image, validating the stride.
func (b *Bitmap) toImage() (*image.NRGBA, error) {
	if len(b.Pix) != b.Width*b.Height*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrPixelStride, len(b.Pix), b.Width, b.Height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pix)
	return img, nil
}

// bitmapFromImage flattens any decoded image into the 4-byte RGBA layout.
func bitmapFromImage(src image.Image) *Bitmap {
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return &Bitmap{Width: bounds.Dx(), Height: bounds.Dy(), Pix: dst.Pix}
}

// parseURIList extracts local file paths from a text/uri-list payload.
// Comment lines and non-file URIs are skipped. Bare absolute paths are
// accepted because some producers omit the file:// scheme.
func parseURIList(data []byte) []string {
	var files []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "/") {
			files = append(files, line)
			continue
		}
		u, err := url.Parse(line)
		if err != nil || u.Scheme != "file" {
			continue
		}
		if u.Host != "" && u.Host != "localhost" {
			continue
		}
		if u.Path != "" {
			files = append(files, u.Path)
		}
	}
	return files
}

// buildURIList renders a single path as a text/uri-list payload with the
// CRLF line ending the format requires.
func buildURIList(path string) []byte {
	u := url.URL{Scheme: "file", Path: path}
	return []byte(u.String() + "\r\n")
}
