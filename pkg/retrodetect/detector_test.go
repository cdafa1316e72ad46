package retrodetect

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spotFrame returns a w×h frame of bg with a 3×3 square of v centred on each
// of the given points.
func spotFrame(w, h int, bg, v float32, centres ...[2]int) *Frame {
	f := filledFrame(w, h, bg)
	for _, c := range centres {
		for y := c[1] - 1; y <= c[1]+1; y++ {
			for x := c[0] - 1; x <= c[0]+1; x++ {
				f.Set(x, y, v)
			}
		}
	}
	return f
}

func newDetector(t *testing.T) *Retrodetect {
	t.Helper()
	r, err := New(nil)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestNew_Params(t *testing.T) {
	t.Parallel()

	r := newDetector(t)
	assert.Equal(t, *NewParams(), r.Params())
	assert.Equal(t, DefaultCandidateCount, r.Params().CandidateCount)
	assert.False(t, r.Initialized())

	p := NewParams()
	p.HistoryDepth = 0
	_, err := New(p)
	assert.Error(t, err)
}

func TestProcess_FirstFrame(t *testing.T) {
	t.Parallel()

	img := spotFrame(100, 100, 1, 1000, [2]int{50, 50})
	img.Set(75, 30, 3)

	r := newDetector(t)
	cands, err := r.Process(&Photo{Name: "first", Img: img})
	require.NoError(t, err)
	require.Len(t, cands, 5)

	first := cands[0]
	assert.InDelta(t, 50, first.X, 1)
	assert.InDelta(t, 50, first.Y, 1)
	assert.InDelta(t, -38.8, first.Score, 0.1)

	second := cands[1]
	assert.Equal(t, 75, second.X)
	assert.Equal(t, 30, second.Y)
	assert.InDelta(t, -79.7, second.Score, 0.1)
	assert.Greater(t, first.Score, second.Score)

	assert.True(t, r.Initialized())
	assert.Equal(t, 1, r.Index())
}

func TestProcess_TransientSpot(t *testing.T) {
	t.Parallel()

	r := newDetector(t)
	static := [2]int{50, 50}
	for i := 0; i < r.Params().HistoryDepth; i++ {
		_, err := r.Process(&Photo{Img: spotFrame(100, 100, 10, 100, static)})
		require.NoError(t, err)
	}

	cands, err := r.Process(&Photo{Img: spotFrame(100, 100, 10, 100, static, [2]int{70, 30})})
	require.NoError(t, err)
	require.NotEmpty(t, cands)

	assert.InDelta(t, 70, cands[0].X, 1)
	assert.InDelta(t, 30, cands[0].Y, 1)
	assert.Greater(t, cands[0].DiffMax, 40.0)
	for _, c := range cands[1:] {
		assert.Less(t, c.DiffMax, cands[0].DiffMax)
	}
}

func TestProcess_Deterministic(t *testing.T) {
	t.Parallel()

	frames := []*Frame{
		randomFrame(90, 70, 11),
		randomFrame(90, 70, 12),
		randomFrame(90, 70, 13),
	}
	run := func() [][]*Candidate {
		r := newDetector(t)
		var out [][]*Candidate
		for _, f := range frames {
			cands, err := r.Process(&Photo{Img: f})
			require.NoError(t, err)
			out = append(out, cands)
		}
		return out
	}

	if d := cmp.Diff(run(), run()); d != "" {
		t.Errorf("results differ between runs:\n%s", d)
	}
}

func TestProcess_InvalidFrameIsNoop(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		photo *Photo
	}{
		{"nil photo", nil},
		{"no image", &Photo{Name: "empty"}},
		{"zero size", &Photo{Img: &Frame{}}},
		{"short buffer", &Photo{Img: &Frame{Width: 2, Height: 2, Pix: make([]float32, 3)}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := newDetector(t)
			cands, err := r.Process(tc.photo)
			require.NoError(t, err)
			assert.Empty(t, cands)
			assert.False(t, r.Initialized())
			assert.Equal(t, 0, r.Index())
		})
	}
}

func TestProcess_ZeroMean(t *testing.T) {
	t.Parallel()

	r := newDetector(t)
	_, err := r.Process(&Photo{Img: NewFrame(40, 40)})
	assert.ErrorIs(t, err, ErrZeroMean)
	assert.False(t, r.Initialized())
	assert.Equal(t, 0, r.Index())
}

func TestProcess_ShapeMismatch(t *testing.T) {
	t.Parallel()

	r := newDetector(t)
	_, err := r.Process(&Photo{Img: filledFrame(60, 50, 1)})
	require.NoError(t, err)
	before := r.Background()

	_, err = r.Process(&Photo{Img: filledFrame(50, 60, 1)})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Equal(t, 1, r.Index())
	assert.Equal(t, before, r.Background())
}

func TestProcess_BackgroundUpdatedAfterDiff(t *testing.T) {
	t.Parallel()

	r := newDetector(t)
	_, err := r.Process(&Photo{Img: filledFrame(60, 60, 3)})
	require.NoError(t, err)

	// Four slots still hold the fill value.
	bg := r.Background()
	for _, v := range bg.Pix {
		assert.Equal(t, float32(BackgroundFill), v)
	}
}

func TestProcessAt_SetsIndex(t *testing.T) {
	t.Parallel()

	r := newDetector(t)
	_, err := r.ProcessAt(&Photo{Img: filledFrame(60, 60, 2)}, 7)
	require.NoError(t, err)
	assert.Equal(t, 8, r.Index())

	r.Reset()
	assert.False(t, r.Initialized())
	assert.Equal(t, 0, r.Index())
}

func TestProcess_ExactDilation(t *testing.T) {
	t.Parallel()

	p := NewParams()
	p.HistoryDepth = 1
	p.ExactDilation = true
	r, err := New(p)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Process(&Photo{Img: spotFrame(60, 60, 1, 100, [2]int{30, 30})})
	require.NoError(t, err)

	// No zero border: the true max filter reaches the frame edge.
	bg := r.Background()
	assert.NotZero(t, bg.At(0, 0))
	assert.Equal(t, bg.At(30, 30), bg.At(37, 30))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	out, err := Normalize(randomFrame(50, 40, 5))
	require.NoError(t, err)
	assert.InDelta(t, NormalizedMean, out.Mean(), 1e-3)

	_, err = Normalize(NewFrame(4, 4))
	assert.ErrorIs(t, err, ErrZeroMean)
}

func TestDifference(t *testing.T) {
	t.Parallel()

	d, err := Difference(filledFrame(3, 2, 5), filledFrame(3, 2, 7))
	require.NoError(t, err)
	for _, v := range d.Pix {
		assert.Equal(t, float32(-2), v)
	}

	_, err = Difference(NewFrame(3, 2), NewFrame(2, 3))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
