// Package report turns detector candidates into label files, overlays and
// per-session summaries.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"retrodetect/pkg/retrodetect"
)

// Version is written into every record.
const Version = "retrodetect, v2.0"

// Record is one labelled detection as stored in the per-frame JSON files.
type Record struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Source     string  `json:"source"`
	Meta       string  `json:"meta"`
	Version    string  `json:"version"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Meta formats a candidate's score and features as "score(f1, f2, ...)".
func Meta(c *retrodetect.Candidate) string {
	feats := c.Features()
	parts := make([]string, len(feats))
	for i, f := range feats {
		parts[i] = fmt.Sprintf("%0.0f", f)
	}
	return fmt.Sprintf("%0.1f(%s)", c.Score, strings.Join(parts, ", "))
}

// Records converts candidates to records, dropping those scoring below
// threshold and those with a non-finite score. The result is never nil.
func Records(cands []*retrodetect.Candidate, threshold float64, source string) []Record {
	recs := make([]Record, 0, len(cands))
	for _, c := range cands {
		if math.IsNaN(c.Score) || math.IsInf(c.Score, 0) {
			continue
		}
		if c.Score < threshold {
			continue
		}
		recs = append(recs, Record{
			X:          c.X,
			Y:          c.Y,
			Source:     source,
			Meta:       Meta(c),
			Version:    Version,
			Label:      "",
			Confidence: c.Score,
		})
	}
	return recs
}

// OutputDir is the directory holding a session's label files.
func OutputDir(session, source string) string {
	return filepath.Join(session, source)
}

// OutputPath is the label file for frameName within a session.
func OutputPath(session, source, frameName string) string {
	base := strings.TrimSuffix(filepath.Base(frameName), filepath.Ext(frameName))
	return filepath.Join(OutputDir(session, source), base+".json")
}

// WriteRecords writes recs as a JSON array to path, creating its directory.
func WriteRecords(path string, recs []Record) error {
	if recs == nil {
		recs = []Record{}
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ReadRecords reads a label file written by WriteRecords.
func ReadRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return recs, nil
}
