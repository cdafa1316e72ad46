package retrodetect

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrZeroMean is returned for frames whose mean intensity is zero; such
	// frames cannot be normalised.
	ErrZeroMean = errors.New("retrodetect: frame has zero mean intensity")

	// ErrShapeMismatch is returned when a frame's dimensions differ from the
	// frame that initialised the detector's background volume.
	ErrShapeMismatch = errors.New("retrodetect: frame dimensions differ from background volume")

	// ErrInvalidFrame is returned when a frame has no pixels or its pixel
	// slice does not match its dimensions.
	ErrInvalidFrame = errors.New("retrodetect: invalid frame")
)

// Params contains the tunable parameters of a Retrodetect instance.
type Params struct {
	// HistoryDepth is the number of dilated frames kept in the background volume.
	HistoryDepth int `json:"history_depth"`
	// CandidateCount is the number of candidates extracted per frame. It shares
	// a default with HistoryDepth but is otherwise unrelated to it.
	CandidateCount int `json:"candidate_count"`
	// BlockSize and BlockOffset configure the dilation of each frame before it
	// enters the background volume.
	BlockSize   int `json:"block_size"`
	BlockOffset int `json:"block_offset"`
	// ExactDilation replaces the block approximation with a true square max
	// filter of side (1+2*(BlockOffset-1))*BlockSize.
	ExactDilation bool `json:"exact_dilation"`
	// TruncateBackground stores dilated frames truncated toward zero, as an
	// integer background volume would.
	TruncateBackground bool `json:"truncate_background"`
}

// NewParams creates Params with default values.
func NewParams() *Params {
	return &Params{
		HistoryDepth:       5,
		CandidateCount:     DefaultCandidateCount,
		BlockSize:          3,
		BlockOffset:        3,
		ExactDilation:      false,
		TruncateBackground: true,
	}
}

// Validate reports the first parameter that is out of range.
func (p *Params) Validate() error {
	if p.HistoryDepth < 1 {
		return fmt.Errorf("history depth must be at least 1, got %d", p.HistoryDepth)
	}
	if p.CandidateCount < 1 {
		return fmt.Errorf("candidate count must be at least 1, got %d", p.CandidateCount)
	}
	if p.BlockSize < 1 {
		return fmt.Errorf("block size must be at least 1, got %d", p.BlockSize)
	}
	if p.BlockOffset < 1 {
		return fmt.Errorf("block offset must be at least 1, got %d", p.BlockOffset)
	}
	return nil
}

// Frame is a single-channel intensity image stored row-major.
type Frame struct {
	Width  int
	Height int
	Pix    []float32
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height, Pix: make([]float32, width*height)}
}

// Valid reports whether f is non-nil, non-empty and its pixel buffer matches
// its dimensions.
func (f *Frame) Valid() bool {
	return f != nil && f.Width > 0 && f.Height > 0 && len(f.Pix) == f.Width*f.Height
}

func (f *Frame) At(x, y int) float32     { return f.Pix[y*f.Width+x] }
func (f *Frame) Set(x, y int, v float32) { f.Pix[y*f.Width+x] = v }

// Bounds returns the frame rectangle with its origin at (0, 0).
func (f *Frame) Bounds() image.Rectangle { return image.Rect(0, 0, f.Width, f.Height) }

// Mean returns the mean intensity of the frame.
func (f *Frame) Mean() float64 {
	if len(f.Pix) == 0 {
		return 0
	}
	var sum float64
	for _, v := range f.Pix {
		sum += float64(v)
	}
	return sum / float64(len(f.Pix))
}

// Photo is one decoded frame file. Img is nil when the file held no usable
// intensity array.
type Photo struct {
	Name string
	Img  *Frame
	Meta map[string]string
}

// Patch is a square float32 crop centred on a candidate.
type Patch struct {
	Size int
	Pix  []float32
}

func (p *Patch) At(x, y int) float32 { return p.Pix[y*p.Size+x] }

// Max returns the largest value in the patch.
func (p *Patch) Max() float32 {
	if len(p.Pix) == 0 {
		return 0
	}
	m := p.Pix[0]
	for _, v := range p.Pix[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Candidate is one hypothesised tag location.
type Candidate struct {
	Score            float64
	X                int
	Y                int
	DiffMax          float64
	CentreMax        float64
	BgMean           float64
	OuterSurroundMax float64
	InnerSurroundMax float64
	DiffPatch        *Patch
	ImagePatch       *Patch
}

// Features returns the diagnostic values in their reporting order. The
// centre maximum appears twice; consumers index into this layout.
func (c *Candidate) Features() [6]float64 {
	return [6]float64{c.DiffMax, c.CentreMax, c.BgMean, c.OuterSurroundMax, c.InnerSurroundMax, c.CentreMax}
}

// OnBorder reports whether the candidate was rejected for lying too close to
// the frame edge.
func (c *Candidate) OnBorder() bool {
	return c.Score == BorderScore && c.Features() == [6]float64{}
}

func (c *Candidate) String() string {
	return fmt.Sprintf("{Score=%f, X=%d, Y=%d, DiffMax=%f, CentreMax=%f, BgMean=%f, Outer=%f, Inner=%f}",
		c.Score, c.X, c.Y, c.DiffMax, c.CentreMax, c.BgMean, c.OuterSurroundMax, c.InnerSurroundMax)
}
