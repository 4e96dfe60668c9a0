package series

import (
	"fmt"
	"math"

	"gapmend/domain/core"
)

// Missing marks an absent measurement inside an analysis vector.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is an absent measurement.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Series represents a measurement table: (time, value) pairs sorted by time.
// Values inside a Series are always observed; gaps exist between rows, not as
// placeholder entries.
type Series struct {
	Times  []float64
	Values []float64
	Name   string
}

// NewSeries creates a series, checking lengths and time ordering.
func NewSeries(times, values []float64, name string) (*Series, error) {
	if len(times) != len(values) {
		return nil, core.NewDataError(fmt.Sprintf("series %s: %d times vs %d values", name, len(times), len(values)))
	}
	if len(times) == 0 {
		return nil, core.NewDataError(fmt.Sprintf("series %s is empty", name))
	}
	for i := 1; i < len(times); i++ {
		if times[i] < times[i-1] {
			return nil, core.NewDataError(fmt.Sprintf("series %s not sorted ascending at row %d", name, i))
		}
	}
	return &Series{Times: times, Values: values, Name: name}, nil
}

// Len returns the number of observations.
func (s *Series) Len() int { return len(s.Values) }

// Span returns the first and last observation times.
func (s *Series) Span() (float64, float64) {
	return s.Times[0], s.Times[len(s.Times)-1]
}

// TimeGrid is the ordered sequence of time coordinates every candidate
// reconstruction is defined on. Invariant: strictly increasing.
type TimeGrid struct {
	Times []float64
}

// NewTimeGrid validates and wraps a coordinate sequence.
func NewTimeGrid(times []float64) (TimeGrid, error) {
	if len(times) == 0 {
		return TimeGrid{}, core.ErrEmptyGrid
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return TimeGrid{}, fmt.Errorf("%w: index %d", core.ErrNonMonotonicGrid, i)
		}
	}
	return TimeGrid{Times: times}, nil
}

// Len returns the grid dimensionality N.
func (g TimeGrid) Len() int { return len(g.Times) }

// Start returns the first grid coordinate.
func (g TimeGrid) Start() float64 { return g.Times[0] }

// End returns the last grid coordinate.
func (g TimeGrid) End() float64 { return g.Times[len(g.Times)-1] }

// Step returns the mean spacing. Grids may be supplied with variable spacing;
// window widths in grid units derive from this.
func (g TimeGrid) Step() float64 {
	if len(g.Times) < 2 {
		return 0
	}
	return (g.End() - g.Start()) / float64(len(g.Times)-1)
}

// IndexRange returns the half-open index range [lo, hi) of grid points whose
// time lies in [from, to]. An empty range returns (0, 0, false).
func (g TimeGrid) IndexRange(from, to float64) (int, int, bool) {
	lo := 0
	for lo < len(g.Times) && g.Times[lo] < from {
		lo++
	}
	hi := lo
	for hi < len(g.Times) && g.Times[hi] <= to {
		hi++
	}
	if lo >= hi {
		return 0, 0, false
	}
	return lo, hi, true
}

// ReferenceProfile is a smoothed local-mean estimate of the true signal and
// its local spread, extended to cover the entire grid.
type ReferenceProfile struct {
	Mean []float64
	Std  []float64
}

// Validate checks that the profile covers an N-point grid.
func (p ReferenceProfile) Validate(n int) error {
	if len(p.Mean) != n || len(p.Std) != n {
		return core.NewDataError(fmt.Sprintf("reference profile length %d/%d, grid length %d", len(p.Mean), len(p.Std), n))
	}
	return nil
}

// SparsePoint is one independently calibrated reference measurement. Its
// agreement window is [Time-Dt, Time+Dt] on the grid.
type SparsePoint struct {
	Time  float64
	Value float64
}
