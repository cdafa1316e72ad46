package report

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the score distribution of one session.
type Summary struct {
	Frames     int
	Candidates int
	Kept       int
	Mean       float64
	Median     float64
	P90        float64
	Max        float64
}

// Summarize computes a Summary over the finite values of scores. Kept counts
// scores at or above threshold.
func Summarize(frames int, scores []float64, threshold float64) Summary {
	s := Summary{Frames: frames, Candidates: len(scores)}

	finite := make([]float64, 0, len(scores))
	for _, v := range scores {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		finite = append(finite, v)
		if v >= threshold {
			s.Kept++
		}
	}
	if len(finite) == 0 {
		return s
	}
	sort.Float64s(finite)

	s.Mean = stat.Mean(finite, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, finite, nil)
	s.P90 = stat.Quantile(0.9, stat.Empirical, finite, nil)
	s.Max = floats.Max(finite)
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("frames=%d candidates=%d kept=%d mean=%.2f median=%.2f p90=%.2f max=%.2f",
		s.Frames, s.Candidates, s.Kept, s.Mean, s.Median, s.P90, s.Max)
}
