//go:build !purego && !js

package retrodetect

import (
	"image"

	"gocv.io/x/gocv"
)

// Mat wraps gocv.Mat for the native OpenCV backend.
type Mat struct {
	m gocv.Mat
}

func NewMat() Mat                            { return Mat{m: gocv.NewMat()} }
func NewMatWithSize(rows, cols int) Mat      { return Mat{m: gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)} }
func (mat Mat) Rows() int                    { return mat.m.Rows() }
func (mat Mat) Cols() int                    { return mat.m.Cols() }
func (mat Mat) Empty() bool                  { return mat.m.Empty() }
func (mat Mat) Clone() Mat                   { return Mat{m: mat.m.Clone()} }
func (mat *Mat) Close()                      { mat.m.Close() }
func (mat Mat) Region(r image.Rectangle) Mat { return Mat{m: mat.m.Region(r)} }

func (mat Mat) DataFloat32() []float32 {
	data, _ := mat.m.DataPtrFloat32()
	return data
}

func (mat *Mat) SetTo(v float32) {
	mat.m.SetTo(gocv.NewScalar(float64(v), 0, 0, 0))
}

func CopyMatTo(src Mat, dst *Mat) {
	src.m.CopyTo(&dst.m)
}

// --- CV operations ---

// fillRect sets every element of r (already clipped to m) to v.
func fillRect(m *Mat, r image.Rectangle, v float32) {
	if r.Empty() {
		return
	}
	region := m.Region(r)
	region.SetTo(v)
	region.Close()
}

func maxOf(a, b Mat, dst *Mat) {
	gocv.Max(a.m, b.m, &dst.m)
}

func subtract(a, b Mat, dst *Mat) {
	gocv.Subtract(a.m, b.m, &dst.m)
}

// scaleDivide computes m = m * mul / div element by element.
func scaleDivide(m *Mat, mul, div float32) {
	m.m.MultiplyFloat(mul)
	m.m.DivideFloat(div)
}

// maxLoc returns the largest element and the first position (row-major) holding it.
func maxLoc(src Mat) (float32, image.Point) {
	_, maxVal, _, loc := gocv.MinMaxLoc(src.m)
	return maxVal, loc
}

func matMeanStdDev(src Mat) (float64, float64) {
	meanMat := gocv.NewMat()
	defer meanMat.Close()
	stdMat := gocv.NewMat()
	defer stdMat.Close()
	gocv.MeanStdDev(src.m, &meanMat, &stdMat)
	return meanMat.GetDoubleAt(0, 0), stdMat.GetDoubleAt(0, 0)
}

// morphDilateRect replaces every pixel with the maximum of the size×size
// square centred on it, reflecting at the borders.
func morphDilateRect(src Mat, dst *Mat, size int) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(size, size))
	defer kernel.Close()
	gocv.MorphologyExWithParams(src.m, &dst.m, gocv.MorphDilate, kernel, 1, gocv.BorderReflect)
}
