package report

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrodetect/pkg/retrodetect"
)

func candidate(score float64, x, y int) *retrodetect.Candidate {
	return &retrodetect.Candidate{
		Score:            score,
		X:                x,
		Y:                y,
		DiffMax:          -2367.4,
		CentreMax:        2632.6,
		BgMean:           3.5,
		OuterSurroundMax: 2.5,
		InnerSurroundMax: 2632.6,
	}
}

func TestMeta(t *testing.T) {
	t.Parallel()

	got := Meta(candidate(-38.84, 49, 49))
	assert.Equal(t, "-38.8(-2367, 2633, 4, 2, 2633, 2633)", got)

	border := &retrodetect.Candidate{Score: retrodetect.BorderScore, X: 5, Y: 5}
	assert.Equal(t, "-100.0(0, 0, 0, 0, 0, 0)", Meta(border))
}

func TestRecords(t *testing.T) {
	t.Parallel()

	cands := []*retrodetect.Candidate{
		candidate(1.5, 40, 50),
		candidate(-3, 60, 70),
		candidate(math.NaN(), 1, 1),
		candidate(math.Inf(1), 2, 2),
		candidate(0, 30, 30),
	}
	got := Records(cands, 0, "retrodetect")

	want := []Record{
		{X: 40, Y: 50, Source: "retrodetect", Meta: Meta(cands[0]), Version: Version, Confidence: 1.5},
		{X: 30, Y: 30, Source: "retrodetect", Meta: Meta(cands[4]), Version: Version, Confidence: 0},
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("Records mismatch (-want +got):\n%s", d)
	}

	empty := Records(nil, 0, "x")
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestWriteRecords(t *testing.T) {
	t.Parallel()

	session := t.TempDir()
	path := OutputPath(session, "retrodetect", "cam1_10+00+00.npz")
	assert.Equal(t, filepath.Join(session, "retrodetect", "cam1_10+00+00.json"), path)
	assert.Equal(t, filepath.Join(session, "retrodetect", "20200805_11+59+03.206111.0019_000001.json"),
		OutputPath(session, "retrodetect", "20200805_11+59+03.206111.0019_000001.np"))

	recs := Records([]*retrodetect.Candidate{candidate(2, 40, 40)}, 0, "retrodetect")
	require.NoError(t, WriteRecords(path, recs))

	back, err := ReadRecords(path)
	require.NoError(t, err)
	assert.Equal(t, recs, back)

	emptyPath := OutputPath(session, "retrodetect", "empty.npz")
	require.NoError(t, WriteRecords(emptyPath, nil))
	data, err := os.ReadFile(emptyPath)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	s := Summarize(3, []float64{-10, 0, 10, math.NaN()}, 0)
	assert.Equal(t, 3, s.Frames)
	assert.Equal(t, 4, s.Candidates)
	assert.Equal(t, 2, s.Kept)
	assert.InDelta(t, 0, s.Mean, 1e-9)
	assert.InDelta(t, 0, s.Median, 1e-9)
	assert.InDelta(t, 10, s.Max, 1e-9)
	assert.Contains(t, s.String(), "kept=2")

	none := Summarize(0, nil, 0)
	assert.Zero(t, none.Max)
}

func TestScoreColor(t *testing.T) {
	t.Parallel()

	low := ScoreColor(-100)
	high := ScoreColor(100)
	assert.Greater(t, low.R, low.G)
	assert.Greater(t, high.G, high.R)
	assert.Equal(t, uint8(255), low.A)
}

func TestRenderOverlay(t *testing.T) {
	t.Parallel()

	frame := retrodetect.NewFrame(200, 100)
	for i := range frame.Pix {
		frame.Pix[i] = float32(i % 17)
	}
	frame.Set(50, 50, 1000)
	cands := []*retrodetect.Candidate{candidate(3, 50, 50), candidate(-50, 150, 20)}

	img, err := RenderOverlay(frame, cands, 0)
	require.NoError(t, err)
	assert.Equal(t, overlayWidth, img.Bounds().Dx())
	assert.Equal(t, 400+summaryHeight, img.Bounds().Dy())

	path := filepath.Join(t.TempDir(), "overlay", "frame.jpg")
	require.NoError(t, SaveOverlay(img, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	_, err = RenderOverlay(nil, cands, 0)
	assert.Error(t, err)
}

func TestRenderPatchStrip(t *testing.T) {
	t.Parallel()

	patch := &retrodetect.Patch{Size: 2 * retrodetect.SaveSize, Pix: make([]float32, 4*retrodetect.SaveSize*retrodetect.SaveSize)}
	patch.Pix[20*patch.Size+20] = 9
	c1 := candidate(1, 40, 40)
	c1.ImagePatch = patch
	c2 := candidate(-100, 5, 5)

	strip, err := RenderPatchStrip([]*retrodetect.Candidate{c1, c2})
	require.NoError(t, err)
	side := 2 * retrodetect.SaveSize * stripScale
	assert.Equal(t, 2*side, strip.Bounds().Dx())

	path := filepath.Join(t.TempDir(), "strip.png")
	require.NoError(t, SaveImage(strip, path))

	_, err = RenderPatchStrip(nil)
	assert.Error(t, err)
}

func TestSaveScoreHistogram(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scores.png")
	require.NoError(t, SaveScoreHistogram(path, "session", []float64{-40, -20, -20, 1, 3, math.NaN()}))
	_, err := os.Stat(path)
	require.NoError(t, err)

	assert.Error(t, SaveScoreHistogram(path, "empty", []float64{math.Inf(-1)}))
}
