package retrodetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func constMat(rows, cols int, v float32) Mat {
	m := NewMatWithSize(rows, cols)
	m.SetTo(v)
	return m
}

func backgroundFrame(t *testing.T, tr *MaxTracker) *Frame {
	t.Helper()
	bg := tr.Background()
	defer bg.Close()
	return MatToFrame(bg)
}

func TestMaxTracker_StartsFilled(t *testing.T) {
	t.Parallel()

	tr := NewMaxTracker(4, 3, 2, false)
	defer tr.Close()

	assert.Equal(t, 4, tr.Depth())
	assert.Equal(t, 0, tr.Index())
	for _, v := range backgroundFrame(t, tr).Pix {
		assert.Equal(t, float32(BackgroundFill), v)
	}
}

func TestMaxTracker_Wraparound(t *testing.T) {
	t.Parallel()

	const depth = 3
	tr := NewMaxTracker(depth, 2, 2, false)
	defer tr.Close()

	for i := 1; i <= depth; i++ {
		m := constMat(2, 2, float32(i))
		tr.Ingest(m)
		m.Close()
	}
	assert.Equal(t, depth, tr.Index())
	assert.Equal(t, float32(3), backgroundFrame(t, tr).At(0, 0))

	// The fourth frame lands in slot 0 again.
	m := constMat(2, 2, 0.5)
	tr.Ingest(m)
	m.Close()

	assert.Equal(t, depth+1, tr.Index())
	assert.Equal(t, float32(0.5), tr.Slot(0).At(1, 1))
	assert.Equal(t, float32(2), tr.Slot(1).At(1, 1))
	assert.Equal(t, float32(3), tr.Slot(2).At(1, 1))
	assert.Equal(t, float32(3), backgroundFrame(t, tr).At(1, 0))
}

func TestMaxTracker_BackgroundIncludesUnfilledSlots(t *testing.T) {
	t.Parallel()

	tr := NewMaxTracker(2, 2, 2, false)
	defer tr.Close()

	m := constMat(2, 2, 10)
	tr.Ingest(m)
	m.Close()

	assert.Equal(t, float32(BackgroundFill), backgroundFrame(t, tr).At(0, 0))
}

func TestMaxTracker_Truncate(t *testing.T) {
	t.Parallel()

	tr := NewMaxTracker(1, 1, 2, true)
	defer tr.Close()

	m := NewMatWithSize(1, 2)
	m.DataFloat32()[0] = 2.7
	m.DataFloat32()[1] = -2.7
	tr.Ingest(m)
	m.Close()

	slot := tr.Slot(0)
	assert.Equal(t, float32(2), slot.At(0, 0))
	assert.Equal(t, float32(-2), slot.At(1, 0))
}

func TestMaxTracker_SetIndexSelectsSlot(t *testing.T) {
	t.Parallel()

	tr := NewMaxTracker(3, 1, 1, false)
	defer tr.Close()

	tr.SetIndex(-1)
	m := constMat(1, 1, 7)
	tr.Ingest(m)
	m.Close()

	assert.Equal(t, float32(7), tr.Slot(2).At(0, 0))
	assert.Equal(t, 0, tr.Index())
}
