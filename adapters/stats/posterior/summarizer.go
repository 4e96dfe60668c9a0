// Package posterior turns retained sampler draws into the reconstructed
// series: burn-in trimming, cross-chain pooling and per-time-point quantile
// extraction.
package posterior

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"gapmend/domain/core"
	"gapmend/domain/series"
)

// Summary holds the per-grid-point posterior quantiles. Values[i][q] is the
// quantile Levels[q] of the pooled samples at grid index i. The 50% level is
// the point reconstruction; the outermost pair forms the credibility band.
type Summary struct {
	Levels []float64
	Values [][]float64
}

// DefaultLevels is the standard quantile grid: 5% to 95% in 2.5% steps.
func DefaultLevels() []float64 {
	var levels []float64
	for q := 0.05; q <= 0.9501; q += 0.025 {
		levels = append(levels, q)
	}
	return levels
}

// Summarize trims the first burnInFraction of each chain's retained draws,
// pools the remainder across chains and extracts the quantile grid at every
// grid index. Missing entries in the pooled samples are ignored.
func Summarize(draws [][][]float64, burnInFraction float64, levels []float64) (*Summary, error) {
	if burnInFraction < 0 || burnInFraction >= 1 {
		return nil, core.NewConfigError("burnInFraction", "must be in [0, 1)")
	}
	if len(levels) == 0 {
		return nil, core.NewConfigError("quantileGrid", "must not be empty")
	}
	for i, q := range levels {
		if q <= 0 || q >= 1 {
			return nil, core.NewConfigError("quantileGrid", fmt.Sprintf("level %g outside (0, 1)", q))
		}
		if i > 0 && q <= levels[i-1] {
			return nil, core.NewConfigError("quantileGrid", "levels must be strictly increasing")
		}
	}

	var pooled [][]float64 // [draw][parameter]
	for _, chain := range draws {
		skip := int(burnInFraction * float64(len(chain)))
		pooled = append(pooled, chain[skip:]...)
	}
	if len(pooled) == 0 {
		return nil, core.NewDataError("no draws survive burn-in")
	}
	dim := len(pooled[0])

	summary := &Summary{
		Levels: append([]float64(nil), levels...),
		Values: make([][]float64, dim),
	}
	samples := make([]float64, 0, len(pooled))
	for p := 0; p < dim; p++ {
		samples = samples[:0]
		for _, draw := range pooled {
			if series.IsMissing(draw[p]) {
				continue
			}
			samples = append(samples, draw[p])
		}
		if len(samples) == 0 {
			return nil, core.NewDataError(fmt.Sprintf("all pooled samples missing at grid index %d", p))
		}
		summary.Values[p] = make([]float64, len(levels))
		for q, level := range levels {
			v, err := stats.Percentile(samples, level*100)
			if err != nil {
				return nil, core.NewDataError(fmt.Sprintf("quantile %g at grid index %d: %v", level, p, err))
			}
			summary.Values[p][q] = v
		}
	}
	return summary, nil
}

// Median returns the point reconstruction at grid index i: the level closest
// to 0.5.
func (s *Summary) Median(i int) float64 {
	best, bestDist := 0, 2.0
	for q, level := range s.Levels {
		d := level - 0.5
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = q, d
		}
	}
	return s.Values[i][best]
}

// Band returns the outermost quantile pair at grid index i.
func (s *Summary) Band(i int) (float64, float64) {
	return s.Values[i][0], s.Values[i][len(s.Levels)-1]
}

// Len returns the grid dimensionality of the summary.
func (s *Summary) Len() int { return len(s.Values) }
