// Package prep builds the inference inputs from the raw measurement tables:
// the time grid, the gap mask of complete positions, the smoothed reference
// profile, the binned sparse references and the empirical autocorrelation
// reference. Everything here runs once, before sampling; every condition that
// would later starve a likelihood term of data fails here instead.
package prep

import (
	"fmt"
	"math"

	"gapmend/adapters/stats/rolling"
	"gapmend/domain/core"
	"gapmend/domain/series"
)

// BuildGrid creates a uniform grid covering [start, end] with the given step.
func BuildGrid(start, end, step float64) (series.TimeGrid, error) {
	if step <= 0 {
		return series.TimeGrid{}, core.NewConfigError("gridStep", "must be positive")
	}
	if end <= start {
		return series.TimeGrid{}, core.NewDataError(fmt.Sprintf("grid span [%g, %g] is empty", start, end))
	}
	n := int(math.Floor((end-start)/step)) + 1
	times := make([]float64, n)
	for i := range times {
		times[i] = start + float64(i)*step
	}
	return series.NewTimeGrid(times)
}

// AlignToGrid interpolates the measurement record linearly onto the grid.
// Grid points outside the record's observation span are missing; gaps inside
// the span are bridged by the interpolation (the gap mask, not this function,
// decides which positions count as observed).
func AlignToGrid(s *series.Series, grid series.TimeGrid) []float64 {
	out := make([]float64, grid.Len())
	j := 0
	for i, t := range grid.Times {
		for j+1 < s.Len() && s.Times[j+1] < t {
			j++
		}
		switch {
		case t < s.Times[0] || t > s.Times[s.Len()-1]:
			out[i] = series.Missing()
		case t == s.Times[j]:
			out[i] = s.Values[j]
		case j+1 < s.Len():
			frac := (t - s.Times[j]) / (s.Times[j+1] - s.Times[j])
			out[i] = s.Values[j] + frac*(s.Values[j+1]-s.Values[j])
		default:
			out[i] = s.Values[j]
		}
	}
	return out
}

// CompletePositions returns the grid indices the measurement record actually
// covers: positions whose bracketing observations are no further apart than
// the gap threshold. Positions beyond the record's first/last observation are
// never complete.
func CompletePositions(s *series.Series, grid series.TimeGrid, gapThreshold float64) ([]int, error) {
	if gapThreshold <= 0 {
		return nil, core.NewConfigError("gapThresholdYears", "must be positive")
	}
	var complete []int
	j := 0
	for i, t := range grid.Times {
		if t < s.Times[0] || t > s.Times[s.Len()-1] {
			continue
		}
		for j+1 < s.Len() && s.Times[j+1] <= t {
			j++
		}
		if t == s.Times[j] {
			complete = append(complete, i)
			continue
		}
		if j+1 < s.Len() && s.Times[j+1]-s.Times[j] <= gapThreshold {
			complete = append(complete, i)
		}
	}
	if len(complete) == 0 {
		return nil, core.NewDataError("measurement record covers no grid position")
	}
	return complete, nil
}

// Profile computes the smoothed local-mean reference and its local spread over
// the full grid: rolling statistics of the grid-aligned record, linearly
// extended past the first/last windowed value so every grid point has a prior.
func Profile(s *series.Series, grid series.TimeGrid, window int) (series.ReferenceProfile, error) {
	aligned := AlignToGrid(s, grid)
	mean, err := rolling.Mean(aligned, window)
	if err != nil {
		return series.ReferenceProfile{}, err
	}
	std, err := rolling.Std(aligned, window)
	if err != nil {
		return series.ReferenceProfile{}, err
	}
	if rolling.AllMissing(mean) {
		return series.ReferenceProfile{}, fmt.Errorf("%w: window %d", core.ErrInsufficientSeries, window)
	}
	fullMean, err := rolling.ExtendLinear(mean, grid.Len())
	if err != nil {
		return series.ReferenceProfile{}, err
	}
	fullStd, err := rolling.ExtendLinear(std, grid.Len())
	if err != nil {
		return series.ReferenceProfile{}, err
	}
	// Local spread must stay non-negative after edge extrapolation, and a
	// profile with interior holes cannot bound a prior.
	for i := range fullStd {
		if series.IsMissing(fullMean[i]) || series.IsMissing(fullStd[i]) {
			return series.ReferenceProfile{}, core.NewDataError(fmt.Sprintf("reference profile missing at grid index %d", i))
		}
		if fullStd[i] < 0 {
			fullStd[i] = 0
		}
	}
	return series.ReferenceProfile{Mean: fullMean, Std: fullStd}, nil
}

// BinSparse restricts the sparse record to points whose time window overlaps
// the grid span and verifies each window captures at least one grid point. A
// point inside the span with an empty window is a data error, surfaced here
// rather than silently scored as a perfect match.
func BinSparse(s *series.Series, grid series.TimeGrid, halfWidth float64) ([]series.SparsePoint, error) {
	if halfWidth <= 0 {
		return nil, core.NewConfigError("discreteHalfWidthYears", "must be positive")
	}
	var points []series.SparsePoint
	for i := 0; i < s.Len(); i++ {
		t := s.Times[i]
		if t+halfWidth < grid.Start() || t-halfWidth > grid.End() {
			continue
		}
		if _, _, ok := grid.IndexRange(t-halfWidth, t+halfWidth); !ok {
			return nil, fmt.Errorf("%w: t=%g, half-width %g", core.ErrOrphanReference, t, halfWidth)
		}
		points = append(points, series.SparsePoint{Time: t, Value: s.Values[i]})
	}
	if len(points) == 0 {
		return nil, core.NewDataError("no sparse reference overlaps the grid span")
	}
	return points, nil
}

// ACFReference computes the empirical autocorrelation of the gapped record:
// the grid-aligned series with non-complete positions masked out, so the
// coefficients reflect only real measurements, with pairwise-complete
// handling across the gaps.
func ACFReference(s *series.Series, grid series.TimeGrid, maxLag int, gapThreshold float64) ([]float64, error) {
	complete, err := CompletePositions(s, grid, gapThreshold)
	if err != nil {
		return nil, err
	}
	aligned := AlignToGrid(s, grid)
	masked := make([]float64, len(aligned))
	for i := range masked {
		masked[i] = series.Missing()
	}
	for _, idx := range complete {
		masked[idx] = aligned[idx]
	}
	return rolling.Autocorrelation(masked, maxLag)
}
