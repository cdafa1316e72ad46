package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"retrodetect/pkg/photo"
	"retrodetect/pkg/report"
	"retrodetect/pkg/retrodetect"
	"retrodetect/pkg/store"
)

type app struct {
	opts *options
	db   *store.DB
	run  *store.Run
}

// sessionResult counts what happened to the frames of one session.
type sessionResult struct {
	Frames    int
	Processed int
	Skipped   int
	Written   int
	Scores    []float64
}

func newApp(opts *options) (*app, error) {
	a := &app{opts: opts}
	if opts.dbPath == "" {
		return a, nil
	}
	db, err := store.NewDB(opts.dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	run, err := db.BeginRun(opts.imgPath, opts.source, opts.threshold)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.db, a.run = db, run
	log.Printf("[Store] run %s recording to %s", run.ID, opts.dbPath)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) debugf(format string, args ...any) {
	if a.opts.verbose {
		log.Output(2, fmt.Sprintf(format, args...))
	}
}

// Run processes every session below the image path in walk order.
func (a *app) Run(ctx context.Context) error {
	sessions, err := findSessions(a.opts.imgPath, a.opts.source)
	if err != nil {
		return err
	}
	a.debugf("[Retrodetect] %d directories under %s", len(sessions), a.opts.imgPath)

	start := time.Now()
	total := 0
	for _, dir := range sessions {
		res, err := a.processSession(ctx, dir)
		if err != nil {
			return err
		}
		total += res.Processed
	}
	log.Printf("[Retrodetect] processed %d frames in %.1fs", total, time.Since(start).Seconds())
	return nil
}

// findSessions returns root and every directory below it whose path has no
// hidden component. Output directories named outputName are not descended.
func findSessions(root, outputName string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("image path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("image path %s is not a directory", root)
	}

	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.Contains(filepath.ToSlash(path), "/.") {
			return filepath.SkipDir
		}
		if path != root && d.Name() == outputName {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return dirs, nil
}

// listFrames returns the frame files directly inside dir, sorted by name.
func listFrames(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && photo.HasExtension(e.Name(), exts) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// processSession runs one detector over the frames of dir. Frames outside
// the time window never reach the detector.
func (a *app) processSession(ctx context.Context, dir string) (*sessionResult, error) {
	names, err := listFrames(dir, a.opts.exts)
	if err != nil {
		return nil, err
	}
	res := &sessionResult{Frames: len(names)}
	if len(names) == 0 {
		return res, nil
	}

	det, err := retrodetect.New(a.opts.params)
	if err != nil {
		return nil, err
	}
	defer det.Close()

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Printf("[Session] %s", name)

		secs, ok := photo.TimeOfDay(name)
		if !ok {
			log.Printf("[Session] skipping %s: no HH:MM:SS time in file name", name)
			res.Skipped++
			continue
		}
		if !(a.opts.before > secs && secs > a.opts.after) {
			a.debugf("[Session] %s outside time window", name)
			res.Skipped++
			continue
		}

		written, scores, err := a.processFrame(ctx, det, dir, name)
		if err != nil {
			if errors.Is(err, errSkipFrame) {
				res.Skipped++
				continue
			}
			return nil, err
		}
		res.Processed++
		res.Scores = append(res.Scores, scores...)
		if written {
			res.Written++
		}
	}

	summary := report.Summarize(res.Processed, res.Scores, a.opts.threshold)
	log.Printf("[Session] %s: %s, %d skipped, %d files written", dir, summary, res.Skipped, res.Written)

	if a.opts.plot && len(res.Scores) > 0 {
		path := filepath.Join(report.OutputDir(dir, a.opts.source), "scores.png")
		if err := report.SaveScoreHistogram(path, filepath.Base(dir), res.Scores); err != nil {
			log.Printf("[Session] score histogram: %v", err)
		}
	}
	return res, nil
}

var errSkipFrame = errors.New("frame skipped")

// processFrame decodes one frame, runs it through det and writes its labels.
// Frames that cannot be decoded or processed are logged and reported as
// errSkipFrame.
func (a *app) processFrame(ctx context.Context, det *retrodetect.Retrodetect, dir, name string) (bool, []float64, error) {
	path := filepath.Join(dir, name)
	p, err := photo.Load(path)
	if err != nil {
		log.Printf("[Session] skipping %s: %v", name, err)
		return false, nil, errSkipFrame
	}

	cands, err := det.Process(p)
	if err != nil {
		log.Printf("[Session] skipping %s: %v", name, err)
		return false, nil, errSkipFrame
	}

	scores := make([]float64, len(cands))
	for i, c := range cands {
		scores[i] = c.Score
		a.debugf("[Session] %s candidate %d: %s", name, i, c)
	}
	recs := report.Records(cands, a.opts.threshold, a.opts.source)

	if a.db != nil {
		if err := a.db.RecordDetections(ctx, a.run.ID, dir, name, recs); err != nil {
			return false, nil, fmt.Errorf("recording %s: %w", name, err)
		}
	}

	if a.opts.overlay && p.Img != nil {
		a.writeOverlay(p.Img, cands, dir, name)
	}

	out := report.OutputPath(dir, a.opts.source, name)
	if !a.opts.refresh {
		if _, err := os.Stat(out); err == nil {
			a.debugf("[Session] keeping existing %s", out)
			return false, scores, nil
		}
	}
	if err := report.WriteRecords(out, recs); err != nil {
		return false, nil, err
	}
	return true, scores, nil
}

func (a *app) writeOverlay(img *retrodetect.Frame, cands []*retrodetect.Candidate, dir, name string) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	overlayDir := filepath.Join(report.OutputDir(dir, a.opts.source), "overlay")

	rendered, err := report.RenderOverlay(img, cands, a.opts.threshold)
	if err != nil {
		log.Printf("[Overlay] %s: %v", name, err)
		return
	}
	if err := report.SaveOverlay(rendered, filepath.Join(overlayDir, base+".jpg")); err != nil {
		log.Printf("[Overlay] %s: %v", name, err)
	}

	if len(cands) == 0 {
		return
	}
	strip, err := report.RenderPatchStrip(cands)
	if err != nil {
		log.Printf("[Overlay] %s patches: %v", name, err)
		return
	}
	if err := report.SaveImage(strip, filepath.Join(overlayDir, base+"_patches.png")); err != nil {
		log.Printf("[Overlay] %s patches: %v", name, err)
	}
}
