//go:build !purego && !js

package photo

import (
	"fmt"

	"gocv.io/x/gocv"

	"retrodetect/pkg/retrodetect"
)

func loadRaster(path string) (*retrodetect.Frame, error) {
	src := gocv.IMRead(path, gocv.IMReadUnchanged)
	if src.Empty() {
		return nil, fmt.Errorf("could not load image: %s", path)
	}
	defer src.Close()
	return grayFrame(src)
}

func decodeRaster(data []byte) (*retrodetect.Frame, error) {
	src, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	defer src.Close()
	if src.Empty() {
		return nil, fmt.Errorf("decoding image: empty result")
	}
	return grayFrame(src)
}

// grayFrame converts an 8 or 16 bit image of 1, 3 or 4 channels to a float32
// luminance frame in the source's native range.
func grayFrame(src gocv.Mat) (*retrodetect.Frame, error) {
	gray := gocv.NewMat()
	defer gray.Close()

	switch src.Channels() {
	case 1:
		src.CopyTo(&gray)
	case 3:
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(src, &gray, gocv.ColorBGRAToGray)
	default:
		return nil, fmt.Errorf("unsupported channel count %d", src.Channels())
	}

	floatMat := gocv.NewMat()
	defer floatMat.Close()
	gray.ConvertTo(&floatMat, gocv.MatTypeCV32F)

	data, err := floatMat.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("reading pixels: %w", err)
	}
	f := retrodetect.NewFrame(floatMat.Cols(), floatMat.Rows())
	copy(f.Pix, data)
	return f, nil
}
