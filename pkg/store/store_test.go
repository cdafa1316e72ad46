package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retrodetect/pkg/report"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "detections.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDB_Idempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "detections.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestRecordDetections(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)

	run, err := db.BeginRun("/data", "retrodetect", 0)
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)

	recs := []report.Record{
		{X: 40, Y: 50, Source: "retrodetect", Meta: "1.5(...)", Version: report.Version, Confidence: 1.5},
		{X: 60, Y: 70, Source: "retrodetect", Meta: "0.2(...)", Version: report.Version, Confidence: 0.2},
	}
	require.NoError(t, db.RecordDetections(ctx, run.ID, "/data/s1", "b.npz", recs[1:]))
	require.NoError(t, db.RecordDetections(ctx, run.ID, "/data/s1", "a.npz", recs[:1]))
	require.NoError(t, db.RecordDetections(ctx, run.ID, "/data/s1", "c.npz", nil))

	got, err := db.Detections(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.npz", got[0].Frame)
	assert.Equal(t, recs[0], got[0].Record)
	assert.Equal(t, "b.npz", got[1].Frame)
	assert.Equal(t, run.ID, got[1].RunID)

	other, err := db.Detections(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := newTestDB(t)

	first, err := db.BeginRun("/a", "retrodetect", 0)
	require.NoError(t, err)
	second, err := db.BeginRun("/b", "manual", 2.5)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	runs, err := db.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first.ID, runs[0].ID)
	assert.Equal(t, "manual", runs[1].Source)
	assert.Equal(t, 2.5, runs[1].Threshold)
	assert.WithinDuration(t, first.Started, runs[0].Started, 1e6)
}
