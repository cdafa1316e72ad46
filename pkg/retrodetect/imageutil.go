package retrodetect

import "math"

// NormalizedMean is the mean intensity every frame is rescaled to.
const NormalizedMean = 5.0

// FrameToMat copies a frame into a new CV_32F Mat.
func FrameToMat(f *Frame) Mat {
	m := NewMatWithSize(f.Height, f.Width)
	copy(m.DataFloat32(), f.Pix)
	return m
}

// MatToFrame copies a contiguous Mat into a new Frame.
func MatToFrame(m Mat) *Frame {
	f := NewFrame(m.Cols(), m.Rows())
	copy(f.Pix, m.DataFloat32()[:len(f.Pix)])
	return f
}

// normalizeMat rescales m in place so its mean is NormalizedMean.
func normalizeMat(m *Mat) error {
	mean, _ := matMeanStdDev(*m)
	if mean == 0 {
		return ErrZeroMean
	}
	scaleDivide(m, NormalizedMean, float32(mean))
	return nil
}

// Normalize returns 5 * f / mean(f). Frames with zero mean return ErrZeroMean.
func Normalize(f *Frame) (*Frame, error) {
	m := FrameToMat(f)
	defer m.Close()
	if err := normalizeMat(&m); err != nil {
		return nil, err
	}
	return MatToFrame(m), nil
}

// Difference returns normalized - background. Both frames must share
// dimensions.
func Difference(normalized, background *Frame) (*Frame, error) {
	if normalized.Width != background.Width || normalized.Height != background.Height {
		return nil, ErrShapeMismatch
	}
	a := FrameToMat(normalized)
	defer a.Close()
	b := FrameToMat(background)
	defer b.Close()
	dst := NewMat()
	defer dst.Close()
	subtract(a, b, &dst)
	return MatToFrame(dst), nil
}

// truncateInPlace rounds every element toward zero.
func truncateInPlace(m *Mat) {
	data := m.DataFloat32()
	n := m.Rows() * m.Cols()
	for i := 0; i < n; i++ {
		data[i] = float32(math.Trunc(float64(data[i])))
	}
}
