// Package store records detection runs in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"retrodetect/pkg/report"
)

type DB struct {
	*sql.DB
}

// Run describes one invocation of the detector over a directory tree.
type Run struct {
	ID        string
	Started   time.Time
	Root      string
	Source    string
	Threshold float64
}

// Detection is a stored record together with where it came from.
type Detection struct {
	RunID   string
	Session string
	Frame   string
	report.Record
}

// NewDB opens (or creates) the database at path and ensures the schema exists.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			started_unix      DOUBLE,
			root              TEXT,
			source            TEXT,
			threshold         DOUBLE
		);
		CREATE TABLE IF NOT EXISTS detections (
			run_id            TEXT,
			session           TEXT,
			frame             TEXT,
			x                 INTEGER,
			y                 INTEGER,
			score             DOUBLE,
			meta              TEXT,
			version           TEXT,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE INDEX IF NOT EXISTS idx_detections_frame ON detections (run_id, session, frame);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// BeginRun stores a new run and returns it with a fresh ID.
func (db *DB) BeginRun(root, source string, threshold float64) (*Run, error) {
	run := &Run{
		ID:        uuid.New().String(),
		Started:   time.Now().UTC(),
		Root:      root,
		Source:    source,
		Threshold: threshold,
	}
	started := float64(run.Started.UnixNano()) / 1e9
	_, err := db.Exec(`INSERT INTO runs (run_id, started_unix, root, source, threshold) VALUES (?, ?, ?, ?, ?)`,
		run.ID, started, run.Root, run.Source, run.Threshold)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordDetections stores the records of one frame in a single transaction.
func (db *DB) RecordDetections(ctx context.Context, runID, session, frame string, recs []report.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO detections (run_id, session, frame, x, y, score, meta, version) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, runID, session, frame, r.X, r.Y, r.Confidence, r.Meta, r.Version); err != nil {
			return fmt.Errorf("insert detection: %w", err)
		}
	}
	return tx.Commit()
}

// Detections returns every detection of a run ordered by session, frame and
// insertion order. The source of each record is taken from its run.
func (db *DB) Detections(ctx context.Context, runID string) ([]Detection, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT d.session, d.frame, d.x, d.y, d.score, d.meta, d.version, r.source
		FROM detections d JOIN runs r ON r.run_id = d.run_id
		WHERE d.run_id = ?
		ORDER BY d.session, d.frame, d.rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer rows.Close()

	var out []Detection
	for rows.Next() {
		d := Detection{RunID: runID}
		if err := rows.Scan(&d.Session, &d.Frame, &d.X, &d.Y, &d.Confidence, &d.Meta, &d.Version, &d.Source); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Runs returns every stored run, oldest first.
func (db *DB) Runs(ctx context.Context) ([]Run, error) {
	rows, err := db.QueryContext(ctx, `SELECT run_id, started_unix, root, source, threshold FROM runs ORDER BY started_unix, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started float64
		if err := rows.Scan(&r.ID, &started, &r.Root, &r.Source, &r.Threshold); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		sec := int64(started)
		r.Started = time.Unix(sec, int64((started-float64(sec))*1e9)).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
