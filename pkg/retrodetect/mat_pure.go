//go:build purego || js

package retrodetect

import (
	"image"
	"math"
)

// Mat is a pure Go 2D float32 matrix.
type Mat struct {
	data    []float32
	rows    int
	cols    int
	stride  int // elements per row in backing array (may differ from cols for sub-matrices)
	dataOff int // offset into data for sub-matrices
	owned   bool
}

func NewMat() Mat { return Mat{} }

func NewMatWithSize(rows, cols int) Mat {
	return Mat{
		data:   make([]float32, rows*cols),
		rows:   rows,
		cols:   cols,
		stride: cols,
		owned:  true,
	}
}

func (m Mat) Rows() int   { return m.rows }
func (m Mat) Cols() int   { return m.cols }
func (m Mat) Empty() bool { return m.data == nil || m.rows == 0 || m.cols == 0 }

func (m Mat) Clone() Mat {
	newData := make([]float32, m.rows*m.cols)
	for r := 0; r < m.rows; r++ {
		srcOff := m.dataOff + r*m.stride
		copy(newData[r*m.cols:], m.data[srcOff:srcOff+m.cols])
	}
	return Mat{data: newData, rows: m.rows, cols: m.cols, stride: m.cols, owned: true}
}

func (m *Mat) Close() {
	if m.owned {
		m.data = nil
	}
	m.rows = 0
	m.cols = 0
}

// DataFloat32 returns the backing float32 slice.
// Only valid for contiguous mats (not un-cloned sub-matrices from Region).
func (m Mat) DataFloat32() []float32 {
	return m.data[m.dataOff:]
}

func (m Mat) Region(r image.Rectangle) Mat {
	return Mat{
		data:    m.data,
		rows:    r.Dy(),
		cols:    r.Dx(),
		stride:  m.stride,
		dataOff: m.dataOff + r.Min.Y*m.stride + r.Min.X,
		owned:   false,
	}
}

func (m *Mat) SetTo(v float32) {
	for r := 0; r < m.rows; r++ {
		off := m.dataOff + r*m.stride
		for c := 0; c < m.cols; c++ {
			m.data[off+c] = v
		}
	}
}

func CopyMatTo(src Mat, dst *Mat) {
	if dst.rows != src.rows || dst.cols != src.cols || dst.data == nil {
		*dst = NewMatWithSize(src.rows, src.cols)
	}
	for r := 0; r < src.rows; r++ {
		srcOff := src.dataOff + r*src.stride
		dstOff := dst.dataOff + r*dst.stride
		copy(dst.data[dstOff:dstOff+src.cols], src.data[srcOff:srcOff+src.cols])
	}
}

// --- Pure Go operations ---

func reflectIndex(idx, size int) int {
	if size == 1 {
		return 0
	}
	if idx < 0 {
		idx = -idx
	}
	for idx >= size {
		idx = 2*size - 2 - idx
		if idx < 0 {
			idx = -idx
		}
	}
	return idx
}

// fillRect sets every element of r (already clipped to m) to v.
func fillRect(m *Mat, r image.Rectangle, v float32) {
	if r.Empty() {
		return
	}
	region := m.Region(r)
	region.SetTo(v)
}

func maxOf(a, b Mat, dst *Mat) {
	n := a.rows * a.cols
	ad, bd := a.DataFloat32(), b.DataFloat32()
	if dst.rows != a.rows || dst.cols != a.cols || dst.data == nil {
		*dst = NewMatWithSize(a.rows, a.cols)
	}
	dd := dst.DataFloat32()
	for i := 0; i < n; i++ {
		if bd[i] > ad[i] {
			dd[i] = bd[i]
		} else {
			dd[i] = ad[i]
		}
	}
}

func subtract(a, b Mat, dst *Mat) {
	n := a.rows * a.cols
	ad, bd := a.DataFloat32(), b.DataFloat32()
	if dst.rows != a.rows || dst.cols != a.cols || dst.data == nil {
		*dst = NewMatWithSize(a.rows, a.cols)
	}
	dd := dst.DataFloat32()
	for i := 0; i < n; i++ {
		dd[i] = ad[i] - bd[i]
	}
}

// scaleDivide computes m = m * mul / div element by element.
func scaleDivide(m *Mat, mul, div float32) {
	data := m.DataFloat32()
	n := m.rows * m.cols
	for i := 0; i < n; i++ {
		data[i] = data[i] * mul / div
	}
}

// maxLoc returns the largest element and the first position (row-major) holding it.
func maxLoc(src Mat) (float32, image.Point) {
	data := src.DataFloat32()
	n := src.rows * src.cols
	if n == 0 {
		return 0, image.Point{}
	}
	best := data[0]
	bestIdx := 0
	for i := 1; i < n; i++ {
		if data[i] > best {
			best = data[i]
			bestIdx = i
		}
	}
	return best, image.Pt(bestIdx%src.cols, bestIdx/src.cols)
}

func matMeanStdDev(src Mat) (float64, float64) {
	data := src.DataFloat32()
	n := src.rows * src.cols
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(data[i])
	}
	mean := sum / float64(n)
	var sse float64
	for i := 0; i < n; i++ {
		d := float64(data[i]) - mean
		sse += d * d
	}
	return mean, math.Sqrt(sse / float64(n))
}

// morphDilateRect replaces every pixel with the maximum of the size×size
// square centred on it, reflecting at the borders.
func morphDilateRect(src Mat, dst *Mat, size int) {
	rows, cols := src.rows, src.cols
	half := size / 2
	srcData := src.DataFloat32()

	if dst.rows != rows || dst.cols != cols || dst.data == nil {
		*dst = NewMatWithSize(rows, cols)
	}

	// Separable: horizontal pass then vertical pass
	temp := make([]float32, rows*cols)
	for r := 0; r < rows; r++ {
		rowOff := r * cols
		for c := 0; c < cols; c++ {
			maxVal := srcData[rowOff+c]
			for k := c - half; k < c-half+size; k++ {
				if v := srcData[rowOff+reflectIndex(k, cols)]; v > maxVal {
					maxVal = v
				}
			}
			temp[rowOff+c] = maxVal
		}
	}

	dstData := dst.DataFloat32()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			maxVal := temp[r*cols+c]
			for k := r - half; k < r-half+size; k++ {
				if v := temp[reflectIndex(k, rows)*cols+c]; v > maxVal {
					maxVal = v
				}
			}
			dstData[r*cols+c] = maxVal
		}
	}
}
