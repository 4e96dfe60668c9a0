package mcmc

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"gapmend/domain/core"
)

// RhatThreshold is the conventional cutoff above which a parameter is
// considered not converged. Advisory only; the sampler never auto-extends
// its iteration budget based on it.
const RhatThreshold = 1.1

// Rhat computes the potential-scale-reduction statistic per parameter across
// chains: the ratio of pooled to within-chain variance. Values near 1.0
// indicate the chains sample the same distribution. Chains are truncated to
// the shortest draw count so the comparison is balanced.
func Rhat(draws [][][]float64) ([]float64, error) {
	if len(draws) < 2 {
		return nil, core.NewConfigError("chainCount", "Rhat needs at least two chains")
	}
	n := len(draws[0])
	for _, chain := range draws {
		if len(chain) < n {
			n = len(chain)
		}
	}
	if n < 2 {
		return nil, core.NewDataError("Rhat needs at least two retained draws per chain")
	}
	dim := len(draws[0][0])
	m := len(draws)

	rhat := make([]float64, dim)
	scratch := make([]float64, n)
	means := make([]float64, m)
	vars := make([]float64, m)

	for p := 0; p < dim; p++ {
		for c := 0; c < m; c++ {
			for i := 0; i < n; i++ {
				scratch[i] = draws[c][i][p]
			}
			means[c] = stat.Mean(scratch, nil)
			vars[c] = stat.Variance(scratch, nil)
		}
		w := stat.Mean(vars, nil)
		b := stat.Variance(means, nil) // between-chain variance of means (B/n)

		if w == 0 {
			// All chains frozen at the same value: converged by definition,
			// unless they froze at different values.
			if b == 0 {
				rhat[p] = 1.0
			} else {
				rhat[p] = float64(n) // effectively infinite disagreement
			}
			continue
		}
		varPlus := float64(n-1)/float64(n)*w + b
		rhat[p] = math.Sqrt(varPlus / w)
	}
	return rhat, nil
}

// MaxRhat returns the largest Rhat value and whether it exceeds the threshold.
func MaxRhat(rhat []float64) (float64, bool) {
	max := 0.0
	for _, v := range rhat {
		if v > max {
			max = v
		}
	}
	return max, max > RhatThreshold
}
