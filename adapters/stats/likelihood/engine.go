// Package likelihood scores candidate full-resolution reconstructions against
// the three reference constraints: sparse reference agreement, local-mean
// agreement and autocorrelation-structure agreement. All scoring happens in
// log-density space; a candidate that produces an empty conditioning set fails
// explicitly instead of being coerced to a finite score.
package likelihood

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"gapmend/adapters/stats/rolling"
	"gapmend/domain/core"
	"gapmend/domain/series"
)

// Term names used in numeric-failure diagnostics.
const (
	TermDiscrete  = "discrete"
	TermLocalMean = "local_mean"
	TermACF       = "autocorrelation"
)

// References bundles everything the engine conditions on. It is passed in
// explicitly at construction; the engine keeps no ambient state.
type References struct {
	Grid     series.TimeGrid
	Sparse   []series.SparsePoint
	Profile  series.ReferenceProfile
	Complete []int     // grid indices where the observed record has no gap
	ACF      []float64 // empirical autocorrelation reference, lags 0..L
}

// Params are the fixed scoring constants.
type Params struct {
	DiscreteHalfWidth float64 // Dt: binning half-width around each sparse point
	RollingWindow     int     // W: local-mean window in grid points
	ErrSd             float64 // analytic error sd for the discrete and local-mean terms
	ACFSd             float64 // sd for the autocorrelation term; tighter than ErrSd
}

// Engine evaluates the three-term log-likelihood. Evaluation is pure: the same
// candidate against the same references yields a bit-identical score.
type Engine struct {
	refs   References
	params Params

	bins    [][2]int // per sparse point: half-open grid index range
	acfLags []int    // reference lags with a usable (non-missing) coefficient
}

// NewEngine validates the references eagerly and precomputes the per-reference
// grid bins. Every condition that would later produce an empty conditioning
// set is rejected here, before any sampling starts.
func NewEngine(refs References, params Params) (*Engine, error) {
	n := refs.Grid.Len()
	if n == 0 {
		return nil, core.ErrEmptyGrid
	}
	if err := refs.Profile.Validate(n); err != nil {
		return nil, err
	}
	if params.DiscreteHalfWidth <= 0 {
		return nil, core.NewConfigError("discreteHalfWidthYears", "must be positive")
	}
	if params.RollingWindow <= 0 || params.RollingWindow > n {
		return nil, core.NewConfigError("rollingWindow", fmt.Sprintf("must be in [1, %d]", n))
	}
	if params.ErrSd <= 0 || params.ACFSd <= 0 {
		return nil, core.NewConfigError("errorSd", "must be positive")
	}
	if len(refs.ACF) == 0 || len(refs.ACF) > n {
		return nil, core.NewConfigError("autocorrelationLagSpan", fmt.Sprintf("reference length %d outside [1, %d]", len(refs.ACF), n))
	}
	if len(refs.Complete) == 0 {
		return nil, core.NewDataError("no complete grid positions to condition the local-mean term on")
	}
	for _, idx := range refs.Complete {
		if idx < 0 || idx >= n {
			return nil, core.NewDataError(fmt.Sprintf("complete position %d outside grid", idx))
		}
		if series.IsMissing(refs.Profile.Mean[idx]) {
			return nil, core.NewDataError(fmt.Sprintf("reference mean missing at complete position %d", idx))
		}
	}

	bins := make([][2]int, len(refs.Sparse))
	for i, p := range refs.Sparse {
		lo, hi, ok := refs.Grid.IndexRange(p.Time-params.DiscreteHalfWidth, p.Time+params.DiscreteHalfWidth)
		if !ok {
			return nil, fmt.Errorf("%w: point %d at t=%g", core.ErrOrphanReference, i, p.Time)
		}
		bins[i] = [2]int{lo, hi}
	}

	var acfLags []int
	for k, r := range refs.ACF {
		if !series.IsMissing(r) {
			acfLags = append(acfLags, k)
		}
	}
	if len(acfLags) == 0 {
		return nil, core.ErrDegenerateACFRef
	}

	return &Engine{refs: refs, params: params, bins: bins, acfLags: acfLags}, nil
}

// Dim returns the candidate dimensionality the engine expects.
func (e *Engine) Dim() int { return e.refs.Grid.Len() }

// Evaluate returns the total log-likelihood of a candidate reconstruction.
// Bound-respecting is not enforced here; boundary rejection is the sampler's
// job. Any NaN or Inf arising in a term is surfaced as a numeric error naming
// that term, never folded into the score.
func (e *Engine) Evaluate(theta []float64) (float64, error) {
	if len(theta) != e.Dim() {
		return 0, core.NewDataError(fmt.Sprintf("candidate length %d, grid length %d", len(theta), e.Dim()))
	}

	discrete, err := e.discreteTerm(theta)
	if err != nil {
		return 0, err
	}
	local, err := e.localMeanTerm(theta)
	if err != nil {
		return 0, err
	}
	acf, err := e.acfTerm(theta)
	if err != nil {
		return 0, err
	}
	return discrete + local + acf, nil
}

// discreteTerm scores the candidate's window means against each sparse
// reference measurement.
func (e *Engine) discreteTerm(theta []float64) (float64, error) {
	var ll float64
	for i, p := range e.refs.Sparse {
		lo, hi := e.bins[i][0], e.bins[i][1]
		var sum float64
		for j := lo; j < hi; j++ {
			sum += theta[j]
		}
		m := sum / float64(hi-lo)
		ll += logNormPDF(m, p.Value, e.params.ErrSd)
	}
	if !isFinite(ll) {
		return 0, core.NewNumericError(TermDiscrete)
	}
	return ll, nil
}

// localMeanTerm scores the candidate's rolling mean against the reference
// profile, restricted to the precomputed complete positions.
func (e *Engine) localMeanTerm(theta []float64) (float64, error) {
	rm, err := rolling.Mean(theta, e.params.RollingWindow)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.NewNumericError(TermLocalMean), err)
	}
	ext, err := rolling.ExtendLinear(rm, len(theta))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.NewNumericError(TermLocalMean), err)
	}
	var ll float64
	for _, idx := range e.refs.Complete {
		x := ext[idx]
		if series.IsMissing(x) {
			return 0, core.NewNumericError(TermLocalMean)
		}
		ll += logNormPDF(x, e.refs.Profile.Mean[idx], e.params.ErrSd)
	}
	if !isFinite(ll) {
		return 0, core.NewNumericError(TermLocalMean)
	}
	return ll, nil
}

// acfTerm scores the candidate's autocorrelation against the reference
// coefficients, elementwise over the usable lags.
func (e *Engine) acfTerm(theta []float64) (float64, error) {
	ac, err := rolling.Autocorrelation(theta, len(e.refs.ACF)-1)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.NewNumericError(TermACF), err)
	}
	var ll float64
	for _, k := range e.acfLags {
		if series.IsMissing(ac[k]) {
			return 0, core.NewNumericError(TermACF)
		}
		ll += logNormPDF(ac[k], e.refs.ACF[k], e.params.ACFSd)
	}
	if !isFinite(ll) {
		return 0, core.NewNumericError(TermACF)
	}
	return ll, nil
}

// logNormPDF is the log of the normal density of x under N(mean, sd^2).
func logNormPDF(x, mean, sd float64) float64 {
	return distuv.Normal{Mu: mean, Sigma: sd}.LogProb(x)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
