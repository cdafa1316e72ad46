//go:build purego || js

package photo

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"retrodetect/pkg/retrodetect"
)

func loadRaster(path string) (*retrodetect.Frame, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	return grayFrame(img), nil
}

func decodeRaster(data []byte) (*retrodetect.Frame, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return grayFrame(img), nil
}

// grayFrame converts img to 16 bit luminance.
func grayFrame(img image.Image) *retrodetect.Frame {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	f := retrodetect.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			f.Pix[y*w+x] = float32((19595*r + 38470*g + 7471*b + 1<<15) >> 16)
		}
	}
	return f
}
