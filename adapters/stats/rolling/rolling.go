// Package rolling provides windowed statistics over vectors that may contain
// missing entries. Missing values are excluded from each window's computation,
// never treated as zero. The sliding accumulator keeps the per-window cost
// O(1), so a full pass stays O(N) regardless of window width.
package rolling

import (
	"math"

	"gapmend/domain/core"
	"gapmend/domain/series"
)

// accumulator tracks the running sum, sum of squares and valid count of the
// current window.
type accumulator struct {
	sum   float64
	sumSq float64
	count int
}

func (a *accumulator) add(v float64) {
	if series.IsMissing(v) {
		return
	}
	a.sum += v
	a.sumSq += v * v
	a.count++
}

func (a *accumulator) remove(v float64) {
	if series.IsMissing(v) {
		return
	}
	a.sum -= v
	a.sumSq -= v * v
	a.count--
}

func (a *accumulator) mean() float64 {
	if a.count == 0 {
		return series.Missing()
	}
	return a.sum / float64(a.count)
}

// std returns the sample standard deviation of the window.
func (a *accumulator) std() float64 {
	if a.count < 2 {
		return series.Missing()
	}
	n := float64(a.count)
	variance := (a.sumSq - a.sum*a.sum/n) / (n - 1)
	if variance < 0 {
		// Cancellation noise from the running sums.
		variance = 0
	}
	return math.Sqrt(variance)
}

// Mean computes windowed means. Output length is len(values)-window+1; entry i
// covers values[i : i+window]. A window with no valid entries yields a missing
// element, which the caller must propagate rather than default to zero.
func Mean(values []float64, window int) ([]float64, error) {
	return slide(values, window, (*accumulator).mean)
}

// Std computes windowed sample standard deviations with the same alignment
// and missing-value policy as Mean.
func Std(values []float64, window int) ([]float64, error) {
	return slide(values, window, (*accumulator).std)
}

func slide(values []float64, window int, stat func(*accumulator) float64) ([]float64, error) {
	if window <= 0 {
		return nil, core.NewConfigError("window", "must be positive")
	}
	if window > len(values) {
		return nil, core.ErrInsufficientSeries
	}
	out := make([]float64, len(values)-window+1)
	var acc accumulator
	for i := 0; i < window; i++ {
		acc.add(values[i])
	}
	out[0] = stat(&acc)
	for i := 1; i < len(out); i++ {
		acc.remove(values[i-1])
		acc.add(values[i+window-1])
		out[i] = stat(&acc)
	}
	return out, nil
}

// AllMissing reports whether every entry of values is missing.
func AllMissing(values []float64) bool {
	for _, v := range values {
		if !series.IsMissing(v) {
			return false
		}
	}
	return true
}
