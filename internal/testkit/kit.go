// Package testkit provides deterministic synthetic fixtures for tests: AR(1)
// series on an annual grid, gap injection and sparse down-sampling, mirroring
// the structure of a real gapped measurement record.
package testkit

import (
	"math/rand"

	"gapmend/domain/series"
)

// AR1Series generates a stationary AR(1) series around mean with coefficient
// phi and innovation standard deviation noiseSd, on a unit-step time axis
// starting at start. Deterministic for a fixed seed.
func AR1Series(n int, start, mean, phi, noiseSd float64, seed int64) *series.Series {
	rng := rand.New(rand.NewSource(seed))
	times := make([]float64, n)
	values := make([]float64, n)
	prev := mean
	for i := 0; i < n; i++ {
		times[i] = start + float64(i)
		prev = mean + phi*(prev-mean) + rng.NormFloat64()*noiseSd
		values[i] = prev
	}
	s, err := series.NewSeries(times, values, "synthetic")
	if err != nil {
		panic(err) // fixture construction never fails for n > 0
	}
	return s
}

// WithGaps returns a copy of s with every observation inside the given
// [from, to] time intervals removed, imitating measurement interruptions.
func WithGaps(s *series.Series, gaps [][2]float64) *series.Series {
	var times, values []float64
	for i := 0; i < s.Len(); i++ {
		t := s.Times[i]
		inGap := false
		for _, g := range gaps {
			if t >= g[0] && t <= g[1] {
				inGap = true
				break
			}
		}
		if !inGap {
			times = append(times, t)
			values = append(values, s.Values[i])
		}
	}
	out, err := series.NewSeries(times, values, s.Name+"_gapped")
	if err != nil {
		panic(err)
	}
	return out
}

// SparseFrom down-samples s to every k-th observation with additive noise,
// imitating an independently calibrated sparse reference record.
func SparseFrom(s *series.Series, every int, noiseSd float64, seed int64) *series.Series {
	rng := rand.New(rand.NewSource(seed))
	var times, values []float64
	for i := 0; i < s.Len(); i += every {
		times = append(times, s.Times[i])
		values = append(values, s.Values[i]+rng.NormFloat64()*noiseSd)
	}
	out, err := series.NewSeries(times, values, s.Name+"_sparse")
	if err != nil {
		panic(err)
	}
	return out
}

// Constant returns a series with the same value at every unit-step time point.
func Constant(n int, start, value float64) *series.Series {
	times := make([]float64, n)
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = start + float64(i)
		values[i] = value
	}
	s, err := series.NewSeries(times, values, "constant")
	if err != nil {
		panic(err)
	}
	return s
}
