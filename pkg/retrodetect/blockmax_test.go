package retrodetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledFrame(w, h int, v float32) *Frame {
	f := NewFrame(w, h)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func TestBlockMax_PreservesShape(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		w, h       int
		block, off int
	}{
		{"square", 30, 30, 3, 3},
		{"partial blocks", 31, 29, 3, 3},
		{"unit block", 12, 9, 1, 1},
		{"too small", 5, 5, 3, 3},
		{"single pixel", 1, 1, 1, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out, err := BlockMax(filledFrame(tc.w, tc.h, 1), tc.block, tc.off)
			require.NoError(t, err)
			assert.Equal(t, tc.w, out.Width)
			assert.Equal(t, tc.h, out.Height)
			assert.Len(t, out.Pix, tc.w*tc.h)
		})
	}
}

func TestBlockMax_IdentityWithBorder(t *testing.T) {
	t.Parallel()

	src := NewFrame(6, 5)
	for i := range src.Pix {
		src.Pix[i] = float32(i + 1)
	}
	out, err := BlockMax(src, 1, 1)
	require.NoError(t, err)

	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			want := src.At(x, y)
			if x == 0 || y == 0 || x == src.Width-1 || y == src.Height-1 {
				want = 0
			}
			assert.Equal(t, want, out.At(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestBlockMax_UnitBlockDilates(t *testing.T) {
	t.Parallel()

	src := NewFrame(11, 11)
	src.Set(5, 5, 7)
	out, err := BlockMax(src, 1, 2)
	require.NoError(t, err)

	for y := 0; y < 11; y++ {
		for x := 0; x < 11; x++ {
			var want float32
			if x >= 4 && x <= 6 && y >= 4 && y <= 6 {
				want = 7
			}
			assert.Equal(t, want, out.At(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestBlockMax_DefaultWindow(t *testing.T) {
	t.Parallel()

	src := NewFrame(30, 30)
	src.Set(15, 15, 9)
	out, err := BlockMax(src, 3, 3)
	require.NoError(t, err)

	for y := 9; y <= 20; y++ {
		for x := 9; x <= 20; x++ {
			assert.Equal(t, float32(9), out.At(x, y), "pixel (%d,%d)", x, y)
		}
	}
	assert.Zero(t, out.At(8, 8))
	assert.Zero(t, out.At(21, 21))
	assert.Zero(t, out.At(0, 0))
	assert.Zero(t, out.At(29, 29))
}

func TestBlockMax_TooSmallIsZero(t *testing.T) {
	t.Parallel()

	out, err := BlockMax(filledFrame(5, 5, 3), 3, 3)
	require.NoError(t, err)
	for _, v := range out.Pix {
		assert.Zero(t, v)
	}
}

func TestBlockMax_InvalidArguments(t *testing.T) {
	t.Parallel()

	_, err := BlockMax(filledFrame(10, 10, 1), 0, 3)
	assert.Error(t, err)
	_, err = BlockMax(filledFrame(10, 10, 1), 3, 0)
	assert.Error(t, err)
}

func TestBlockMax_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	src := NewFrame(20, 20)
	src.Set(10, 10, 4)
	before := append([]float32(nil), src.Pix...)
	_, err := BlockMax(src, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, before, src.Pix)
}
