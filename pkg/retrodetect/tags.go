package retrodetect

import (
	"fmt"
	"image"
)

// Patch geometry and scoring constants. The ring and window coordinates are
// local to a patch of side 2*SaveSize whose centre is (SaveSize, SaveSize).
const (
	SaveSize      = 20    // half-width of the stored patches
	DeleteSize    = 15    // half-width of the suppression box
	EdgeMargin    = 20    // candidates this close to an edge are rejected
	SuppressValue = -5000 // written into the suppression box
	BorderScore   = -100  // score of edge-rejected candidates

	// DefaultCandidateCount is the number of candidates taken per frame.
	DefaultCandidateCount = 5

	centreLo = 17 // centre window [17, 24)
	centreHi = 24
	blankLo  = 37 // blanked before averaging, [37, 44) clipped to the patch
	blankHi  = 44

	scoreBase        = 5.0
	scoreDiffDivisor = 100.0
	scoreCentreGain  = 250.0
	scoreInnerGain   = 20.0
	scoreOuterDiv    = 100.0
)

// outerRing and innerRing are (row, col) points at radius 4 and 2 around the
// patch centre.
var (
	outerRing = [8][2]int{{16, 20}, {20, 16}, {24, 20}, {20, 24}, {16, 16}, {16, 24}, {24, 16}, {24, 24}}
	innerRing = [8][2]int{{18, 20}, {20, 18}, {22, 20}, {20, 22}, {18, 18}, {18, 22}, {22, 18}, {22, 22}}
)

// FindTags extracts count candidates from a difference image and the
// normalised frame it was computed from. The inputs are not modified. A
// zero count yields no candidates; a negative count is an error.
//
// Each iteration takes the brightest remaining pixel of diff, copies 40×40
// patches of diff and img around it, blanks a 30×30 box of the working diff so
// the peak is not found again, and scores the peak from the image patch.
// Peaks within EdgeMargin pixels of an edge get BorderScore and zero features.
// Candidates are returned in the order they were found, not by score.
func FindTags(diff, img *Frame, count int) ([]*Candidate, error) {
	if !diff.Valid() || !img.Valid() {
		return nil, ErrInvalidFrame
	}
	if count < 0 {
		return nil, fmt.Errorf("candidate count must not be negative, got %d", count)
	}
	if diff.Width != img.Width || diff.Height != img.Height {
		return nil, fmt.Errorf("%w: diff %dx%d, image %dx%d", ErrShapeMismatch,
			diff.Width, diff.Height, img.Width, img.Height)
	}
	work := FrameToMat(diff)
	defer work.Close()
	imgMat := FrameToMat(img)
	defer imgMat.Close()
	return findTags(&work, imgMat, count), nil
}

// findTags is FindTags on Mats; diff is used as the working copy and is
// overwritten by the suppression boxes.
func findTags(diff *Mat, img Mat, count int) []*Candidate {
	rows, cols := diff.Rows(), diff.Cols()
	bounds := image.Rect(0, 0, cols, rows)
	candidates := make([]*Candidate, 0, count)

	for n := 0; n < count; n++ {
		peak, loc := maxLoc(*diff)
		x, y := loc.X, loc.Y

		diffPatch := extractPatch(diff.DataFloat32(), rows, cols, x, y)
		imgPatch := extractPatch(img.DataFloat32(), rows, cols, x, y)

		box := image.Rect(x-DeleteSize, y-DeleteSize, x+DeleteSize, y+DeleteSize).Intersect(bounds)
		fillRect(diff, box, SuppressValue)

		if x <= EdgeMargin || x >= cols-EdgeMargin || y <= EdgeMargin || y >= rows-EdgeMargin {
			candidates = append(candidates, &Candidate{
				Score:      BorderScore,
				X:          x,
				Y:          y,
				DiffPatch:  diffPatch,
				ImagePatch: imgPatch,
			})
			continue
		}

		c := scorePatch(imgPatch, float64(peak))
		c.X, c.Y = x, y
		c.DiffPatch = diffPatch
		c.ImagePatch = imgPatch
		candidates = append(candidates, c)
	}
	return candidates
}

// extractPatch copies the 2*SaveSize square whose centre is (x, y). Pixels
// outside the source are zero.
func extractPatch(data []float32, rows, cols, x, y int) *Patch {
	size := 2 * SaveSize
	p := &Patch{Size: size, Pix: make([]float32, size*size)}
	for py := 0; py < size; py++ {
		sy := y - SaveSize + py
		if sy < 0 || sy >= rows {
			continue
		}
		for px := 0; px < size; px++ {
			sx := x - SaveSize + px
			if sx < 0 || sx >= cols {
				continue
			}
			p.Pix[py*size+px] = data[sy*cols+sx]
		}
	}
	return p
}

// scorePatch computes the features and heuristic score of an interior peak.
// A zero centre maximum divides by zero and yields an infinite or NaN score.
func scorePatch(img *Patch, diffMax float64) *Candidate {
	size := img.Size

	var centreMax float32
	for r := centreLo; r < centreHi; r++ {
		for c := centreLo; c < centreHi; c++ {
			if v := img.At(c, r); (r == centreLo && c == centreLo) || v > centreMax {
				centreMax = v
			}
		}
	}

	// Averaged over a copy with the blank window zeroed.
	var sum float64
	for r := 0; r < size; r++ {
		for c := 0; c < size; c++ {
			if r >= blankLo && r < blankHi && c >= blankLo && c < blankHi {
				continue
			}
			sum += float64(img.At(c, r))
		}
	}
	bgMean := sum / float64(size*size)

	outer := ringMax(img, outerRing)
	inner := ringMax(img, innerRing)

	centre := float64(centreMax)
	pred := scoreBase
	pred += diffMax / scoreDiffDivisor
	pred -= scoreCentreGain / (1 + centre)
	pred -= scoreInnerGain * inner / centre
	pred -= outer / scoreOuterDiv

	return &Candidate{
		Score:            pred,
		DiffMax:          diffMax,
		CentreMax:        centre,
		BgMean:           bgMean,
		OuterSurroundMax: outer,
		InnerSurroundMax: inner,
	}
}

func ringMax(p *Patch, ring [8][2]int) float64 {
	m := p.At(ring[0][1], ring[0][0])
	for _, pt := range ring[1:] {
		if v := p.At(pt[1], pt[0]); v > m {
			m = v
		}
	}
	return float64(m)
}
