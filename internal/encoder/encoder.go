// Package encoder turns raw RGB pixels into JPEG bytes at a fixed quality.
package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// Quality is the fixed JPEG quality of every artifact. Output size and
// fidelity are not user-tunable.
const Quality = 60

// Fault is a codec failure captured at the encode boundary. A misbehaving
// encoder must never take down the daemon.
type Fault struct {
	Reason any
}

func (f *Fault) Error() string {
	return fmt.Sprintf("jpeg encoder fault: %v", f.Reason)
}

// EncodeJPEG compresses width*height RGB pixels into JPEG bytes. The pixel
// slice must hold exactly width*height*3 bytes; that is the caller's
// contract and violations panic. Panics raised inside the codec itself are
// recovered and returned as *Fault.
func EncodeJPEG(rgb []byte, width, height int) (data []byte, err error) {
	if len(rgb) != width*height*3 {
		panic(fmt.Sprintf("encoder: %d rgb bytes for %dx%d", len(rgb), width, height))
	}

	defer func() {
		if r := recover(); r != nil {
			data, err = nil, &Fault{Reason: r}
		}
	}()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		img.Pix[i*4+0] = rgb[i*3+0]
		img.Pix[i*4+1] = rgb[i*3+1]
		img.Pix[i*4+2] = rgb[i*3+2]
		img.Pix[i*4+3] = 0xff
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
