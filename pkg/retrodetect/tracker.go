package retrodetect

// BackgroundFill is the initial value of every background slot. It exceeds
// any normalised pixel, so until HistoryDepth frames have been ingested the
// background suppresses detections.
const BackgroundFill = 5000

// MaxTracker is a fixed-depth ring of dilated frames whose per-pixel maximum
// serves as the background estimate.
//
// MaxTracker is not safe for concurrent use.
type MaxTracker struct {
	slots    []Mat
	idx      int
	rows     int
	cols     int
	truncate bool
}

// NewMaxTracker allocates depth slots of rows×cols filled with BackgroundFill.
// When truncate is set, ingested frames are stored rounded toward zero.
func NewMaxTracker(depth, rows, cols int, truncate bool) *MaxTracker {
	t := &MaxTracker{
		slots:    make([]Mat, depth),
		rows:     rows,
		cols:     cols,
		truncate: truncate,
	}
	for i := range t.slots {
		t.slots[i] = NewMatWithSize(rows, cols)
		t.slots[i].SetTo(BackgroundFill)
	}
	return t
}

func (t *MaxTracker) Depth() int     { return len(t.slots) }
func (t *MaxTracker) Index() int     { return t.idx }
func (t *MaxTracker) SetIndex(i int) { t.idx = i }
func (t *MaxTracker) Rows() int      { return t.rows }
func (t *MaxTracker) Cols() int      { return t.cols }

// Ingest overwrites slot Index() mod Depth() with dilated and advances the
// index.
func (t *MaxTracker) Ingest(dilated Mat) {
	slot := &t.slots[t.slotFor(t.idx)]
	CopyMatTo(dilated, slot)
	if t.truncate {
		truncateInPlace(slot)
	}
	t.idx++
}

// Background returns the per-pixel maximum over every slot. The caller owns
// the returned Mat.
func (t *MaxTracker) Background() Mat {
	bg := t.slots[0].Clone()
	for i := 1; i < len(t.slots); i++ {
		maxOf(bg, t.slots[i], &bg)
	}
	return bg
}

// Slot returns a copy of slot i.
func (t *MaxTracker) Slot(i int) *Frame {
	return MatToFrame(t.slots[i])
}

// Close releases the slot matrices.
func (t *MaxTracker) Close() {
	for i := range t.slots {
		t.slots[i].Close()
	}
}

// slotFor maps an index onto a slot; negative indices count back from the end.
func (t *MaxTracker) slotFor(idx int) int {
	n := len(t.slots)
	return ((idx % n) + n) % n
}
