package series

import (
	"fmt"

	"gapmend/domain/core"
)

// PriorBounds is the per-parameter box the flat prior lives in. Outside the
// box the prior density is zero; the sampler rejects there without ever
// evaluating the likelihood.
type PriorBounds struct {
	Low []float64
	Up  []float64
}

// NewPriorBounds derives the box from a reference profile: mean +/- k*std.
// A zero local spread collapses that dimension to a point mass, which is
// legal; nothing downstream divides by the width.
func NewPriorBounds(profile ReferenceProfile, k float64) (PriorBounds, error) {
	if k < 0 {
		return PriorBounds{}, core.NewConfigError("priorWidthMultiplier", "must be >= 0")
	}
	n := len(profile.Mean)
	if n == 0 || len(profile.Std) != n {
		return PriorBounds{}, core.NewDataError("reference profile empty or mismatched")
	}
	b := PriorBounds{
		Low: make([]float64, n),
		Up:  make([]float64, n),
	}
	for i := 0; i < n; i++ {
		if IsMissing(profile.Mean[i]) || IsMissing(profile.Std[i]) {
			return PriorBounds{}, core.NewDataError(fmt.Sprintf("reference profile missing at index %d", i))
		}
		b.Low[i] = profile.Mean[i] - k*profile.Std[i]
		b.Up[i] = profile.Mean[i] + k*profile.Std[i]
	}
	return b, b.Validate()
}

// Validate enforces low[i] <= up[i] for every parameter.
func (b PriorBounds) Validate() error {
	if len(b.Low) == 0 || len(b.Low) != len(b.Up) {
		return core.NewConfigError("bounds", "empty or mismatched low/up arrays")
	}
	for i := range b.Low {
		if b.Low[i] > b.Up[i] {
			return fmt.Errorf("%w: index %d (%g > %g)", core.ErrBoundsInverted, i, b.Low[i], b.Up[i])
		}
	}
	return nil
}

// Len returns the parameter dimensionality.
func (b PriorBounds) Len() int { return len(b.Low) }

// Contains reports whether every coordinate of theta lies inside the box.
func (b PriorBounds) Contains(theta []float64) bool {
	if len(theta) != len(b.Low) {
		return false
	}
	for i, v := range theta {
		if v < b.Low[i] || v > b.Up[i] {
			return false
		}
	}
	return true
}
