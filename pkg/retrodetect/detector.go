package retrodetect

import "fmt"

// Retrodetect finds retroreflective tags in a sequence of frames. Each frame
// is compared against the maximum of the previous HistoryDepth dilated frames,
// so transient bright spots stand out and static highlights do not.
//
// The background volume is allocated from the first valid frame and its
// dimensions are fixed from then on. Retrodetect is not safe for concurrent
// use; run one instance per frame sequence.
type Retrodetect struct {
	params  Params
	tracker *MaxTracker
	idx     int
}

// New creates a detector. A nil p selects NewParams().
func New(p *Params) (*Retrodetect, error) {
	if p == nil {
		p = NewParams()
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return &Retrodetect{params: *p}, nil
}

// Params returns a copy of the detector's parameters.
func (r *Retrodetect) Params() Params { return r.params }

// Index returns the number of the next frame, which selects the background
// slot it will overwrite.
func (r *Retrodetect) Index() int { return r.idx }

// Initialized reports whether the background volume has been allocated.
func (r *Retrodetect) Initialized() bool { return r.tracker != nil }

// Process runs one frame through the detector and returns its candidates in
// discovery order.
//
// A nil photo, a photo without an image, or a structurally invalid image
// returns no candidates and leaves the detector untouched. A zero-mean frame
// returns ErrZeroMean and a frame whose dimensions differ from the first
// returns ErrShapeMismatch, also without changing state.
func (r *Retrodetect) Process(photo *Photo) ([]*Candidate, error) {
	return r.process(photo, r.idx)
}

// ProcessAt is Process with the frame index set to idx first, which selects
// the background slot the frame's dilation replaces.
func (r *Retrodetect) ProcessAt(photo *Photo, idx int) ([]*Candidate, error) {
	return r.process(photo, idx)
}

func (r *Retrodetect) process(photo *Photo, idx int) ([]*Candidate, error) {
	if photo == nil || !photo.Img.Valid() {
		return []*Candidate{}, nil
	}
	img := photo.Img

	if r.tracker != nil && (img.Width != r.tracker.Cols() || img.Height != r.tracker.Rows()) {
		return nil, fmt.Errorf("%w: got %dx%d, want %dx%d", ErrShapeMismatch,
			img.Width, img.Height, r.tracker.Cols(), r.tracker.Rows())
	}

	normalized := FrameToMat(img)
	defer normalized.Close()
	if err := normalizeMat(&normalized); err != nil {
		return nil, err
	}

	r.ensureInitialized(img.Height, img.Width)
	r.idx = idx
	r.tracker.SetIndex(idx)

	background := r.tracker.Background()
	defer background.Close()
	diff := NewMat()
	defer diff.Close()
	subtract(normalized, background, &diff)

	candidates := findTags(&diff, normalized, r.params.CandidateCount)

	dilated := dilate(normalized, &r.params)
	defer dilated.Close()
	r.tracker.Ingest(dilated)
	r.idx = r.tracker.Index()

	return candidates, nil
}

func (r *Retrodetect) ensureInitialized(rows, cols int) {
	if r.tracker != nil {
		return
	}
	r.tracker = NewMaxTracker(r.params.HistoryDepth, rows, cols, r.params.TruncateBackground)
}

// Background returns a copy of the current background estimate, or nil before
// the first frame.
func (r *Retrodetect) Background() *Frame {
	if r.tracker == nil {
		return nil
	}
	bg := r.tracker.Background()
	defer bg.Close()
	return MatToFrame(bg)
}

// Reset drops the background volume and the frame index.
func (r *Retrodetect) Reset() {
	r.Close()
	r.idx = 0
}

// Close releases the background volume. The detector may be reused and will
// reinitialise from the next frame.
func (r *Retrodetect) Close() {
	if r.tracker != nil {
		r.tracker.Close()
		r.tracker = nil
	}
}
