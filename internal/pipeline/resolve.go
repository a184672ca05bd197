package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/clipsqueeze/clipsqueeze/internal/clipboard"
)

// Image is a resolved compression input: tightly packed RGB pixels.
type Image struct {
	Width  int
	Height int
	RGB    []byte
}

// imageExts are the file extensions treated as image files when a copied
// file list is resolved.
var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".tiff": true,
	".webp": true,
}

func isImagePath(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

// resolve extracts a compressible image from the snapshot. A nil Image with
// a nil error means the snapshot holds nothing to compress: an empty read,
// a multi-file list, or a file without an image extension.
func (p *Pipeline) resolve(snap *clipboard.Snapshot) (*Image, error) {
	switch snap.Kind {
	case clipboard.KindFileList:
		if len(snap.Files) != 1 || !isImagePath(snap.Files[0]) {
			return nil, nil
		}
		return decodeImageFile(snap.Files[0])
	case clipboard.KindImage:
		return stripAlpha(snap.Image)
	default:
		return nil, nil
	}
}

// selfTriggered reports whether the snapshot is the pipeline's own artifact
// announcement: a single-entry file list pointing into the data directory.
func (p *Pipeline) selfTriggered(snap *clipboard.Snapshot) bool {
	return snap.Kind == clipboard.KindFileList &&
		len(snap.Files) == 1 &&
		filepath.Dir(snap.Files[0]) == p.dataDir
}

// originalSize reports how many bytes the source occupied before
// compression: the on-disk size for file-sourced runs, the advertised
// image/jpeg target length for raw images. Best effort; 0 means unknown.
func (p *Pipeline) originalSize(ctx context.Context, snap *clipboard.Snapshot) uint64 {
	switch snap.Kind {
	case clipboard.KindFileList:
		if len(snap.Files) != 1 || !isImagePath(snap.Files[0]) {
			return 0
		}
		fi, err := os.Stat(snap.Files[0])
		if err != nil {
			return 0
		}
		return uint64(fi.Size())
	case clipboard.KindImage:
		data, err := p.conn.ReadFormat(ctx, "image/jpeg")
		if err != nil || data == nil {
			return 0
		}
		return uint64(len(data))
	}
	return 0
}

func decodeImageFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return fromImage(src), nil
}

// fromImage flattens any decoded image to tightly packed RGB.
func fromImage(src image.Image) *Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)

	rgb := make([]byte, 0, w*h*3)
	for i := 0; i < w*h; i++ {
		rgb = append(rgb, dst.Pix[i*4], dst.Pix[i*4+1], dst.Pix[i*4+2])
	}
	return &Image{Width: w, Height: h, RGB: rgb}
}

// stripAlpha drops every fourth byte, converting RGBA to packed RGB. The
// stride check guards data that crossed the clipboard boundary; silently
// misreading pixels would corrupt the artifact.
func stripAlpha(bm *clipboard.Bitmap) (*Image, error) {
	if len(bm.Pix) != bm.Width*bm.Height*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d",
			clipboard.ErrPixelStride, len(bm.Pix), bm.Width, bm.Height)
	}
	rgb := make([]byte, 0, bm.Width*bm.Height*3)
	for i := 0; i < len(bm.Pix); i += 4 {
		rgb = append(rgb, bm.Pix[i], bm.Pix[i+1], bm.Pix[i+2])
	}
	return &Image{Width: bm.Width, Height: bm.Height, RGB: rgb}, nil
}
