package report

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const histogramBins = 40

// SaveScoreHistogram renders a histogram of the finite scores to path. The
// image format follows the file extension.
func SaveScoreHistogram(path, title string, scores []float64) error {
	values := make(plotter.Values, 0, len(scores))
	for _, v := range scores {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return errors.New("no finite scores to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "score"
	p.Y.Label.Text = "candidates"

	h, err := plotter.NewHist(values, histogramBins)
	if err != nil {
		return fmt.Errorf("building histogram: %w", err)
	}
	h.LineStyle.Width = vg.Points(0.5)
	p.Add(h)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving histogram: %w", err)
	}
	return nil
}
